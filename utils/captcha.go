package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/commentstream/backend/config"
)

var captchaHTTP = &http.Client{Timeout: 5 * time.Second}

// VerifyCaptcha checks a client-supplied CAPTCHA token against the remote
// verification endpoint (reCAPTCHA-compatible siteverify API). Challenge
// generation and rendering are entirely the remote service's problem.
func VerifyCaptcha(ctx context.Context, token, remoteIP string) (bool, error) {
	cfg := config.Get()

	form := url.Values{}
	form.Set("secret", cfg.CaptchaSecret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.CaptchaVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := captchaHTTP.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Success, nil
}
