package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/invoice"
	"invoice-bot/src/pkg/util"
)

/*
RESTClient reads invoices through the Supabase REST (PostgREST) API.

Requests:
  - GET {base}/rest/v1/{header_table}?invoice_id=eq.N&limit=1&select=*
  - GET {base}/rest/v1/{items_table}?invoice_id=eq.N&select=*
*/
type RESTClient struct {
	baseURL     string
	apiKey      string
	headerTable string
	itemsTable  string
	httpClient  *http.Client
}

func NewRESTClient(baseURL string, apiKey string, cfg Config) *RESTClient {
	return &RESTClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		headerTable: cfg.HeaderTable,
		itemsTable:  cfg.ItemsTable,
		httpClient:  &http.Client{Timeout: util.Seconds(cfg.TimeoutSeconds, 1, 120)},
	}
}

/*
FetchHeader returns the single header row of the invoice.

An empty result set is "not found", not an error. The row is read with limit=1
so a duplicated id still yields one header.
*/
func (c *RESTClient) FetchHeader(ctx context.Context, invoiceID int64) (header invoice.Record, found bool, e *xerr.Error) {
	rows, e := c.selectRows(ctx, c.headerTable, invoiceID, 1)
	if e != nil {
		return nil, false, e
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// FetchItems returns every item row of the invoice in the order the API returns them.
func (c *RESTClient) FetchItems(ctx context.Context, invoiceID int64) (items []invoice.Record, e *xerr.Error) {
	return c.selectRows(ctx, c.itemsTable, invoiceID, 0)
}

func (c *RESTClient) selectRows(ctx context.Context, table string, invoiceID int64, limit int) (rows []invoice.Record, e *xerr.Error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set(invoice.ColumnInvoiceID, "eq."+strconv.FormatInt(invoiceID, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	urlStr := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(table), query.Encode())

	tl.Log(tl.Debug, palette.Blue, "%s rows from '%s' for invoice '%d'", "Selecting", table, invoiceID)
	startTime := time.Now()

	req, newReqErr := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if newReqErr != nil {
		return nil, xerr.NewError(newReqErr, "Failed to create HTTP request", map[string]any{"table": table})
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", util.AcceptEncoding)

	resp, httpErr := c.httpClient.Do(req)
	if httpErr != nil {
		return nil, xerr.NewError(httpErr, "HTTP error during select", map[string]any{"table": table, "invoice_id": invoiceID})
	}
	defer resp.Body.Close()

	respBody, e := util.GetBody(resp, table)
	if e != nil {
		return nil, e
	}
	if resp.StatusCode != http.StatusOK {
		return nil, xerr.NewError(fmt.Errorf("status is '%s'", resp.Status), "API error from store select", string(respBody))
	}
	tl.LogJSON(tl.Debug, palette.CyanDim, fmt.Sprintf("%s response body", table), json.RawMessage(respBody))

	rows, e = decodeRows(respBody)
	if e != nil {
		return nil, e
	}

	tl.Log(tl.Debug1, palette.Green, "%s %d rows from '%s' in %s", "Selected", len(rows), table, time.Since(startTime).Round(time.Millisecond))
	return rows, nil
}

// decodeRows keeps numbers as json.Number so money.Coerce sees the exact stored text.
func decodeRows(body []byte) (rows []invoice.Record, e *xerr.Error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	rows = []invoice.Record{}
	decodeErr := decoder.Decode(&rows)
	if decodeErr != nil {
		return nil, xerr.NewError(decodeErr, "Failed to decode response body", nil)
	}
	return rows, nil
}
