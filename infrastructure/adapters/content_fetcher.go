package adapters

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
)

// ContentFetcher executes an HTTP request and returns the response body.
// Errors come back classified under the given kind so callers can decide
// whether to retry.
type ContentFetcher interface {
	FetchContent(req *http.Request, kind domain.ErrorKind) ([]byte, error)
}

type contentFetcher struct {
	logger outbound.LoggerPort
	client *http.Client
}

func NewContentFetcher(logger outbound.LoggerPort, timeout time.Duration) ContentFetcher {
	return &contentFetcher{
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *contentFetcher) FetchContent(req *http.Request, kind domain.ErrorKind) ([]byte, error) {
	res, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorWithFields(err, "failed to send the HTTP request", map[string]interface{}{
			"method": req.Method,
			"URL":    req.URL.String(),
		})
		return nil, domain.NewTransient(kind, err)
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.ErrorWithFields(err, "failed to close the response body", map[string]interface{}{
				"method": req.Method,
				"URL":    req.URL.String(),
			})
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		bodyPayload, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		c.logger.ErrorWithFields(nil, "HTTP request returned non-OK status code", map[string]interface{}{
			"method":  req.Method,
			"URL":     req.URL.String(),
			"status":  res.StatusCode,
			"message": string(bodyPayload),
		})
		statusErr := fmt.Errorf("HTTP request returned status %d", res.StatusCode)
		if transientStatus(res.StatusCode) {
			return nil, domain.NewTransient(kind, statusErr)
		}
		return nil, domain.NewPermanent(kind, statusErr)
	}

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.ErrorWithFields(err, "failed to read the response body", map[string]interface{}{
			"method": req.Method,
			"URL":    req.URL.String(),
		})
		return nil, domain.NewTransient(kind, err)
	}

	return payload, nil
}
