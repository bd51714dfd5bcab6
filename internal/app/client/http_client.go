package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"replikeep/internal/app/client/config"
	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"
	"replikeep/internal/domain/sync"

	"golang.org/x/exp/slog"
)

// httpClient реализует sync.RemoteStore поверх HTTP API сервера.
type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
	pageSize  int
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
		tlsConfig, err := loadTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpClient{
		client:    &http.Client{Timeout: timeout, Transport: transport},
		log:       log.With("component", "http_client"),
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "Replikeep-Client/1.0",
		pageSize:  500,
	}, nil
}

func loadTLSConfig(caPath string) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if caPath == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения CA сертификата: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA сертификат %s не содержит PEM блоков", caPath)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// Probe проверяет доступность сервера запросом к health.
func (h *httpClient) Probe(ctx context.Context) bool {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		h.log.Debug("probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Whoami возвращает владельца, которому выпущен текущий токен.
func (h *httpClient) Whoami(ctx context.Context) (string, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/auth/whoami", nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Owner string `json:"owner"`
	}
	if err := h.parseResponse(resp, "whoami", &out); err != nil {
		return "", err
	}
	return out.Owner, nil
}

// UpsertBatch отправляет пачку записей одним запросом. Записи, отклонённые
// сервером, возвращаются по индексу как *sync.RemoteError.
func (h *httpClient) UpsertBatch(ctx context.Context, kind record.Kind, recs []record.Remote) (map[int]error, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	op := "upsert " + kind.String()
	resp, err := h.doRequest(ctx, http.MethodPut, "/api/v1/sync/"+kind.String()+"/records",
		remote.UpsertRequest{Records: recs})
	if err != nil {
		return nil, err
	}

	var out remote.UpsertResponse
	if err := h.parseResponse(resp, op, &out); err != nil {
		return nil, err
	}

	rejected := make(map[int]error, len(out.Errors))
	for _, fr := range out.Errors {
		if fr.Index < 0 || fr.Index >= len(recs) {
			h.log.Warn("server reported rejection out of batch range", "index", fr.Index, "batch", len(recs))
			continue
		}
		rejected[fr.Index] = &sync.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: fr.Error}
	}
	if out.Failed > len(rejected) {
		return rejected, &sync.RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%d records rejected without details", out.Failed-len(rejected)),
		}
	}
	return rejected, nil
}

// QueryModifiedSince выбирает изменения постранично, следуя курсору сервера.
func (h *httpClient) QueryModifiedSince(
	ctx context.Context,
	kind record.Kind,
	owner string,
	q sync.RemoteQuery,
) ([]record.Remote, error) {
	op := "query " + kind.String()
	req := remote.QueryRequest{
		Since:       q.Since,
		CreatedFrom: q.CreatedFrom,
		Limit:       h.pageSize,
	}

	out := make([]record.Remote, 0)
	for {
		resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/sync/"+kind.String()+"/query", req)
		if err != nil {
			return nil, err
		}

		var page remote.QueryResponse
		if err := h.parseResponse(resp, op, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			if rec.Owner == "" {
				rec.Owner = owner
			}
			out = append(out, rec)
		}

		if !page.HasMore || page.Next == nil {
			break
		}
		req.After = page.Next
	}

	h.log.Debug("remote changes fetched", "kind", kind, "count", len(out))
	return out, nil
}

func (h *httpClient) GetSettings(ctx context.Context, owner string) (*settings.Document, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/sync/settings", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, settings.ErrNotFound
	}

	var doc settings.Document
	if err := h.parseResponse(resp, "get settings", &doc); err != nil {
		return nil, err
	}
	if doc.Owner == "" {
		doc.Owner = owner
	}
	return &doc, nil
}

func (h *httpClient) PutSettings(ctx context.Context, owner string, doc settings.Document) error {
	doc.Owner = owner
	resp, err := h.doRequest(ctx, http.MethodPut, "/api/v1/sync/settings", doc)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, "put settings", nil)
}

// doRequest выполняет запрос. Сетевые ошибки оборачиваются в sync.ErrUnreachable.
func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	// Добавляем заголовки
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", sync.ErrUnreachable, err)
	}

	return resp, nil
}

// parseResponse читает ответ. Статус >= 400 превращается в *sync.RemoteError.
func (h *httpClient) parseResponse(resp *http.Response, op string, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: ошибка чтения ответа: %w", sync.ErrUnreachable, err)
	}

	h.log.Debug("Получен ответ",
		"op", op,
		"status", resp.StatusCode,
		"size", len(body),
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if err := json.Unmarshal(body, &errResp); err == nil {
			switch {
			case errResp.Detail != "":
				msg = errResp.Detail
			case errResp.Error != "":
				msg = errResp.Error
			case errResp.Title != "":
				msg = errResp.Title
			}
		}
		return &sync.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
