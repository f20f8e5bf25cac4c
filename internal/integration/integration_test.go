package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/gemdesk/gemdesk/internal/api/http"
	appAccount "github.com/gemdesk/gemdesk/internal/application/account"
	appActivity "github.com/gemdesk/gemdesk/internal/application/activity"
	appAuth "github.com/gemdesk/gemdesk/internal/application/auth"
	appDeal "github.com/gemdesk/gemdesk/internal/application/deal"
	appInventory "github.com/gemdesk/gemdesk/internal/application/inventory"
	appNotify "github.com/gemdesk/gemdesk/internal/application/notify"
	"github.com/gemdesk/gemdesk/internal/infrastructure/sse"
	"github.com/gemdesk/gemdesk/internal/store"
)

const (
	adminUser    = "admin"
	adminPass    = "Adm1n!Passw0rd"
	supplierUser = "ruby_corp"
	clientUser   = "carla"
	testPass     = "S3cure!Passw0rd"
)

func TestDealFlowEndToEnd(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	admin := loginAs(t, server.URL, adminUser, adminPass)
	registerAndApprove(t, admin, server.URL, supplierUser, "SUPPLIER")
	registerAndApprove(t, admin, server.URL, clientUser, "CLIENT")
	supplier := loginAs(t, server.URL, supplierUser, testPass)
	client := loginAs(t, server.URL, clientUser, testPass)

	// Supplier uploads inventory.
	uploadShard(t, supplier, server.URL, supplierUser, []map[string]string{
		stoneRow("RB-001", "1.52", "11800"),
		stoneRow("RB-002", "2.03", "15400"),
	})

	// Combined view reflects the upload.
	var view struct {
		Stones []struct {
			StockID string `json:"stockId"`
			Locked  string `json:"locked"`
		} `json:"stones"`
	}
	getJSON(t, client, server.URL+"/v1/stones", &view)
	if len(view.Stones) != 2 {
		t.Fatalf("expected 2 stones in combined view, got %d", len(view.Stones))
	}

	// Client bids on a stone.
	var deal struct {
		DealID      string `json:"dealId"`
		StockID     string `json:"stockId"`
		FinalStatus string `json:"finalStatus"`
	}
	postJSON(t, client, server.URL+"/v1/deals", map[string]string{
		"stock_id":    "RB-001",
		"offer_price": "11000",
	}, &deal)
	if deal.DealID == "" || deal.FinalStatus != "OPEN" {
		t.Fatalf("unexpected created deal: %+v", deal)
	}

	// A second bid on the locked stone is refused.
	resp := rawPost(t, client, server.URL+"/v1/deals", map[string]string{
		"stock_id":    "RB-001",
		"offer_price": "11500",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for locked stone, got %d", resp.StatusCode)
	}

	// Supplier accepts, admin approves.
	postJSON(t, supplier, server.URL+"/v1/deals/"+deal.DealID+"/supplier-decision",
		map[string]string{"decision": "ACCEPT"}, nil)
	var completed struct {
		FinalStatus string `json:"finalStatus"`
	}
	postJSON(t, admin, server.URL+"/v1/deals/"+deal.DealID+"/admin-decision",
		map[string]string{"decision": "APPROVE"}, &completed)
	if completed.FinalStatus != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", completed.FinalStatus)
	}

	// The sold stone left the combined view.
	getJSON(t, client, server.URL+"/v1/stones", &view)
	if len(view.Stones) != 1 || view.Stones[0].StockID != "RB-002" {
		t.Fatalf("expected only RB-002 to remain, got %+v", view.Stones)
	}

	// Three history entries: creation, supplier accept, admin approve.
	var history struct {
		History []struct {
			DealID string `json:"dealId"`
		} `json:"history"`
	}
	getJSON(t, admin, server.URL+"/v1/deals/history", &history)
	if len(history.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history.History))
	}

	// Leaderboard counts the completed deal.
	var board struct {
		Leaderboard []struct {
			Supplier  string `json:"supplier"`
			Completed int    `json:"completed"`
		} `json:"leaderboard"`
	}
	getJSON(t, client, server.URL+"/v1/deals/leaderboard", &board)
	if len(board.Leaderboard) != 1 || board.Leaderboard[0].Supplier != supplierUser || board.Leaderboard[0].Completed != 1 {
		t.Fatalf("unexpected leaderboard: %+v", board.Leaderboard)
	}

	// The supplier got notified along the way.
	var mailbox struct {
		Notifications []struct {
			Message string `json:"message"`
		} `json:"notifications"`
	}
	getJSON(t, supplier, server.URL+"/v1/notifications", &mailbox)
	if len(mailbox.Notifications) == 0 {
		t.Fatal("expected supplier notifications")
	}
}

func TestSupplierRejectionReleasesStone(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	admin := loginAs(t, server.URL, adminUser, adminPass)
	registerAndApprove(t, admin, server.URL, supplierUser, "SUPPLIER")
	registerAndApprove(t, admin, server.URL, clientUser, "CLIENT")
	supplier := loginAs(t, server.URL, supplierUser, testPass)
	client := loginAs(t, server.URL, clientUser, testPass)

	uploadShard(t, supplier, server.URL, supplierUser, []map[string]string{
		stoneRow("RB-001", "1.52", "11800"),
	})

	var deal struct {
		DealID string `json:"dealId"`
	}
	postJSON(t, client, server.URL+"/v1/deals", map[string]string{
		"stock_id":    "RB-001",
		"offer_price": "11000",
	}, &deal)
	postJSON(t, supplier, server.URL+"/v1/deals/"+deal.DealID+"/supplier-decision",
		map[string]string{"decision": "REJECT"}, nil)

	// The stone is biddable again.
	var second struct {
		DealID      string `json:"dealId"`
		FinalStatus string `json:"finalStatus"`
	}
	postJSON(t, client, server.URL+"/v1/deals", map[string]string{
		"stock_id":    "RB-001",
		"offer_price": "11200",
	}, &second)
	if second.FinalStatus != "OPEN" || second.DealID == deal.DealID {
		t.Fatalf("expected a fresh open deal, got %+v", second)
	}
}

func TestRoleGates(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	admin := loginAs(t, server.URL, adminUser, adminPass)
	registerAndApprove(t, admin, server.URL, clientUser, "CLIENT")
	client := loginAs(t, server.URL, clientUser, testPass)

	// Clients cannot read the account list.
	resp := rawGet(t, client, server.URL+"/v1/accounts/")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for client account list, got %d", resp.StatusCode)
	}

	// Unauthenticated requests are refused.
	anon := &http.Client{Timeout: 5 * time.Second}
	resp, err := anon.Get(server.URL + "/v1/stones/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}

	// Pending accounts cannot log in.
	registerUser(t, server.URL, "dan_pending", "SUPPLIER")
	jar, _ := cookiejar.New(nil)
	pending := &http.Client{Timeout: 5 * time.Second, Jar: jar}
	resp = rawPost(t, pending, server.URL+"/v1/auth/login", map[string]string{
		"username": "dan_pending",
		"password": testPass,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for pending login, got %d", resp.StatusCode)
	}
}

// helpers

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	recordStore := store.NewMemoryStore()

	sseHub := sse.NewHub()
	inventorySvc := appInventory.NewService(recordStore, logger)
	notifySvc := appNotify.NewService(recordStore, sseHub, logger)
	activitySvc := appActivity.NewService(recordStore, logger)
	accountSvc := appAccount.NewService(recordStore, logger)
	authSvc := appAuth.NewService(accountSvc, appAuth.NewSessionStore(recordStore), 24*time.Hour, logger)
	dealSvc := appDeal.NewService(recordStore, inventorySvc, notifySvc, activitySvc, logger)

	if err := accountSvc.EnsureAdmin(t.Context(), adminUser, adminPass); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	apiServer := httpapi.NewServer(inventorySvc, dealSvc, accountSvc, authSvc, notifySvc, activitySvc, sseHub, "gemdesk_session", false)
	server := httptest.NewServer(apiServer.Router())
	t.Cleanup(sseHub.Stop)
	return server
}

func loginAs(t *testing.T, baseURL, username, password string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Timeout: 10 * time.Second, Jar: jar}
	postJSON(t, client, baseURL+"/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	return client
}

func registerUser(t *testing.T, baseURL, username, role string) {
	t.Helper()
	anon := &http.Client{Timeout: 5 * time.Second}
	postJSON(t, anon, baseURL+"/v1/auth/register", map[string]string{
		"username": username,
		"password": testPass,
		"role":     role,
	}, nil)
}

func registerAndApprove(t *testing.T, admin *http.Client, baseURL, username, role string) {
	t.Helper()
	registerUser(t, baseURL, username, role)
	postJSON(t, admin, fmt.Sprintf("%s/v1/accounts/%s/approve", baseURL, username), map[string]string{}, nil)
}

func stoneRow(stockID, weight, price string) map[string]string {
	return map[string]string{
		"Stock #":         stockID,
		"Shape":           "ROUND",
		"Weight":          weight,
		"Color":           "D",
		"Clarity":         "VS1",
		"Price Per Carat": price,
		"Lab":             "GIA",
		"Report #":        "RPT-" + stockID,
		"Diamond Type":    "NATURAL",
		"Description":     "round brilliant",
		"CUT":             "EX",
		"Polish":          "EX",
		"Symmetry":        "EX",
	}
}

func uploadShard(t *testing.T, supplier *http.Client, baseURL, name string, rows []map[string]string) {
	t.Helper()
	payload := map[string]interface{}{"rows": rows}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, baseURL+"/v1/shards/"+name, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := supplier.Do(req)
	if err != nil {
		t.Fatalf("put shard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("put shard status %d: %s", resp.StatusCode, string(body))
	}
}

func postJSON(t *testing.T, client *http.Client, url string, payload interface{}, out interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("post %s status %d: %s", url, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func rawPost(t *testing.T, client *http.Client, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func rawGet(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, client *http.Client, url string, out interface{}) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("get %s status %d: %s", url, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
