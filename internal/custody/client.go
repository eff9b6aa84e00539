package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/logger"
)

// ErrCustodyOperationFailed возвращается, когда кастодиальный процессор
// отклонил операцию либо не подтвердил её за отведённое число попыток.
// Локальное состояние при этом не меняется.
var ErrCustodyOperationFailed = errors.New("custody operation failed")

// Processor описывает кастодиальный процессор средств. Подтверждение
// процессора обязательно до локальной фиксации: сначала внешний вызов,
// потом транзакция в БД.
type Processor interface {
	Hold(ctx context.Context, jobID, clientID uuid.UUID, amount float64) (string, error)
	Release(ctx context.Context, custodyID string) error
	Refund(ctx context.Context, custodyID string) error
}

// Client реализует Processor поверх HTTP API процессора.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL, apiKey string, maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type holdRequest struct {
	JobID    uuid.UUID `json:"job_id"`
	ClientID uuid.UUID `json:"client_id"`
	Amount   float64   `json:"amount"`
}

type holdResponse struct {
	CustodyID string `json:"custody_id"`
}

// Hold блокирует средства заказчика и возвращает идентификатор операции
// на стороне процессора.
func (c *Client) Hold(ctx context.Context, jobID, clientID uuid.UUID, amount float64) (string, error) {
	var result holdResponse
	err := c.post(ctx, "/v1/holds", holdRequest{
		JobID:    jobID,
		ClientID: clientID,
		Amount:   amount,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.CustodyID == "" {
		return "", fmt.Errorf("%w: пустой custody_id в ответе", ErrCustodyOperationFailed)
	}
	return result.CustodyID, nil
}

// Release переводит удержанные средства исполнителю.
func (c *Client) Release(ctx context.Context, custodyID string) error {
	return c.post(ctx, "/v1/holds/"+custodyID+"/release", struct{}{}, nil)
}

// Refund возвращает удержанные средства заказчику.
func (c *Client) Refund(ctx context.Context, custodyID string) error {
	return c.post(ctx, "/v1/holds/"+custodyID+"/refund", struct{}{}, nil)
}

// post выполняет запрос с ограниченным числом повторов. Повторяются только
// сетевые ошибки и ответы 5xx; ответ 4xx означает окончательный отказ.
func (c *Client) post(ctx context.Context, path string, payload any, result any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: baseURL не задан", ErrCustodyOperationFailed)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("custody: marshal %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrCustodyOperationFailed, ctx.Err())
			case <-time.After(backoff):
			}
			logger.Log.WithField("attempt", attempt).Warn("custody: повтор запроса")
		}

		lastErr = c.doOnce(ctx, path, body, result)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, errRejected) {
			return fmt.Errorf("%w: %v", ErrCustodyOperationFailed, lastErr)
		}
	}
	return fmt.Errorf("%w: %v", ErrCustodyOperationFailed, lastErr)
}

// errRejected помечает окончательный отказ процессора, повтор бессмыслен.
var errRejected = errors.New("custody rejected")

func (c *Client) doOnce(ctx context.Context, path string, body []byte, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("custody: код ответа %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errorBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errorBody)
		return fmt.Errorf("%w: код ответа %d: %v", errRejected, resp.StatusCode, errorBody)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("custody: decode %w", err)
		}
	}
	return nil
}
