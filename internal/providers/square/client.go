package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cfcdist/orderflow/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotConfigured marks a processor without credentials; sync skips the
// source rather than failing.
var ErrNotConfigured = errors.New("square_not_configured")

const apiVersion = "2024-01-18"

// Payment is one completed processor payment with its amount in dollars.
type Payment struct {
	ID         string
	Amount     decimal.Decimal
	Note       string
	OrderID    string
	BuyerEmail string
	CreatedAt  time.Time
}

type Client struct {
	log        *zap.Logger
	httpClient *http.Client
	baseURL    string
	token      string
	locationID string
	configured bool
}

func New(cfg config.SquareConfig, log *zap.Logger) *Client {
	return &Client{
		log:        log.Named("providers.square"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		token:      cfg.AccessToken,
		locationID: cfg.LocationID,
		configured: cfg.Configured(),
	}
}

func (c *Client) Configured() bool { return c.configured }

// ListCompletedPayments returns completed payments created at or after begin,
// newest first. Pending and failed payments are filtered out.
func (c *Client) ListCompletedPayments(ctx context.Context, begin time.Time) ([]Payment, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("location_id", c.locationID)
	params.Set("begin_time", begin.UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("sort_order", "DESC")

	var out struct {
		Payments []paymentPayload `json:"payments"`
	}
	if err := c.get(ctx, "/payments?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(out.Payments))
	for _, p := range out.Payments {
		if p.Status != "COMPLETED" {
			continue
		}
		payments = append(payments, p.toPayment())
	}
	return payments, nil
}

// GetOrderNote fetches the linked processor order and returns the first line
// item name. Dashboard-created payment links store their label there, which
// is where the internal order ids live (e.g. "5317 & 5319 G&B CFC").
func (c *Client) GetOrderNote(ctx context.Context, orderID string) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}
	if orderID == "" {
		return "", nil
	}

	var out struct {
		Order struct {
			LineItems []struct {
				Name string `json:"name"`
			} `json:"line_items"`
		} `json:"order"`
	}
	if err := c.get(ctx, "/orders/"+orderID, &out); err != nil {
		return "", err
	}
	if len(out.Order.LineItems) == 0 {
		return "", nil
	}
	return out.Order.LineItems[0].Name, nil
}

type paymentPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Note        string `json:"note"`
	OrderID     string `json:"order_id"`
	BuyerEmail  string `json:"buyer_email_address"`
	CreatedAt   string `json:"created_at"`
	AmountMoney struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"amount_money"`
}

func (p paymentPayload) toPayment() Payment {
	createdAt, _ := time.Parse(time.RFC3339, p.CreatedAt)
	return Payment{
		ID:         p.ID,
		Amount:     decimal.New(p.AmountMoney.Amount, -2),
		Note:       p.Note,
		OrderID:    p.OrderID,
		BuyerEmail: p.BuyerEmail,
		CreatedAt:  createdAt,
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Square-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("square api error", zap.Int("status", resp.StatusCode), zap.String("path", path))
		return fmt.Errorf("square api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
