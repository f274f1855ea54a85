package drrrclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	Cookie    string        `mapstructure:"cookie" json:"cookie"`
	UserAgent string        `mapstructure:"user_agent" json:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
}

const (
	defaultBaseURL = "https://drrr.com"
	defaultTimeout = 30 * time.Second
	defaultUA      = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Mobile Safari/537.36"
)

var errTimeout = errors.New("timeout waiting for response")

// OpError — ошибка операции клиента: имя операции, HTTP-статус (если дошли
// до ответа) и причина.
type OpError struct {
	Op     string
	Status int
	Err    error
}

func (e *OpError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("drrr: %s: http %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("drrr: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// DRRR — HTTP-клиент комнатного API drrr.com. Все операции ходят с одной
// и той же cookie-сессией; без cookie запросы тоже уходят (сервер сам
// отвергнет то, что требует авторизации — ошибку мы не глотаем).
type DRRR struct {
	http      *http.Client
	baseURL   string
	cookie    string
	userAgent string
	timeout   time.Duration
}

func New(cfg Config) *DRRR {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUA
	}
	return &DRRR{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		cookie:    cfg.Cookie,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

func (c *DRRR) Timeout() time.Duration { return c.timeout }

// ========================= low-level =========================

// newRequest — заголовки как у браузера; Accept-Encoding ставим руками,
// поэтому прозрачная распаковка net/http выключается и gzip разбираем сами.
func (c *DRRR) newRequest(method, rawurl string, form url.Values) (*http.Request, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, rawurl, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Referer", c.baseURL+"/")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

// do — выполняет запрос и возвращает статус + распакованное тело.
// Сетевые ошибки и таймауты заворачиваются в OpError без статуса.
func (c *DRRR) do(op string, req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &OpError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, gerr := gzip.NewReader(resp.Body)
		if gerr != nil {
			return resp.StatusCode, nil, &OpError{Op: op, Status: resp.StatusCode, Err: gerr}
		}
		defer gz.Close()
		r = gz
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return resp.StatusCode, nil, &OpError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, b, nil
}

func (c *DRRR) get(op, path string) (int, []byte, error) {
	req, err := c.newRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, &OpError{Op: op, Err: err}
	}
	return c.do(op, req)
}

func (c *DRRR) post(op, path string, form url.Values) (int, []byte, error) {
	req, err := c.newRequest(http.MethodPost, c.baseURL+path, form)
	if err != nil {
		return 0, nil, &OpError{Op: op, Err: err}
	}
	return c.do(op, req)
}

// ajax — POST в комнату. Редирект в lounge означает, что сообщение до
// комнаты не дошло (сессия без комнаты) — это ошибка, а не успех.
func (c *DRRR) ajax(op string, form url.Values) error {
	status, body, err := c.post(op, "/room/?ajax=1&api=json", form)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &OpError{Op: op, Status: status, Err: errors.New("unexpected status")}
	}
	var res ajaxResult
	if jerr := json.Unmarshal(body, &res); jerr != nil {
		// пришла HTML-страница; если это lounge — нас выкинуло из комнаты
		if bytes.Contains(body, []byte("lounge")) {
			return &OpError{Op: op, Status: status, Err: errors.New("redirected to lounge (no active room session)")}
		}
		return nil
	}
	if res.Error != "" {
		return &OpError{Op: op, Status: status, Err: errors.New(res.Error)}
	}
	if res.Redirect == "lounge" {
		return &OpError{Op: op, Status: status, Err: errors.New("redirected to lounge (no active room session)")}
	}
	log.Debug().Str("module", "drrrclient").Str("op", op).Msg("ajax ok")
	return nil
}
