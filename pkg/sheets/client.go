package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultTimeout = 30 * time.Second

// Client reads cell values from a spreadsheet.
type Client struct {
	srv     *sheets.Service
	timeout time.Duration
}

// NewServiceAccountClient authenticates with a service account email and PEM private key.
func NewServiceAccountClient(ctx context.Context, email, privateKey string) (*Client, error) {
	conf := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{sheets.SpreadsheetsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}
	return NewClient(ctx, option.WithHTTPClient(conf.Client(ctx)))
}

// NewCredentialsClient accepts either a credentials JSON document or a path to one.
func NewCredentialsClient(ctx context.Context, credentials string) (*Client, error) {
	data := []byte(credentials)
	if !strings.HasPrefix(strings.TrimSpace(credentials), "{") {
		b, err := os.ReadFile(credentials)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		data = b
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return NewClient(ctx, option.WithCredentials(creds))
}

func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return &Client{srv: srv, timeout: defaultTimeout}, nil
}

// GetValues returns the formatted values of readRange. Missing trailing cells stay missing;
// empty cells come back as nil.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]*string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", readRange, err)
	}
	return toCells(resp.Values), nil
}

func toCells(values [][]interface{}) [][]*string {
	rows := make([][]*string, len(values))
	for i, row := range values {
		cells := make([]*string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		rows[i] = cells
	}
	return rows
}

func cellString(v interface{}) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	default:
		s = fmt.Sprint(val)
	}
	if s == "" {
		return nil
	}
	return &s
}
