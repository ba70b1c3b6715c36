package nightscout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestHashSecret(t *testing.T) {
	result := hashSecret("test")
	expected := "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"

	if result != expected {
		t.Errorf("hashSecret(\"test\") = %s, want %s", result, expected)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("https://test.example.com/", "", "", false)

	if client.baseURL != "https://test.example.com" {
		t.Errorf("baseURL = %s, should not have trailing slash", client.baseURL)
	}
}

func TestClient_GetEntries(t *testing.T) {
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(69 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/entries/sgv" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("find[date][$gte]") != strconv.FormatInt(from.UnixMilli(), 10) {
			t.Errorf("gte = %s", q.Get("find[date][$gte]"))
		}
		if q.Get("find[date][$lte]") != strconv.FormatInt(to.UnixMilli(), 10) {
			t.Errorf("lte = %s", q.Get("find[date][$lte]"))
		}
		if q.Get("count") != "1000" {
			t.Errorf("count = %s, want 1000", q.Get("count"))
		}

		entries := []Entry{
			{SGV: 120, Date: to.UnixMilli()},
			{SGV: 115, Date: to.Add(-5 * time.Minute).UnixMilli()},
			{SGV: 118, Date: to.Add(-10 * time.Minute).UnixMilli()},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	entries, err := client.GetEntries(context.Background(), from, to, 1000)

	if err != nil {
		t.Fatalf("GetEntries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Got %d entries, want 3", len(entries))
	}
	if !entries[0].Time().Equal(to) {
		t.Errorf("entries[0].Time() = %v, want %v", entries[0].Time(), to)
	}
}

func TestClient_GetEntries_OpenRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Query()) != 0 {
			t.Errorf("query = %v, want empty", r.URL.Query())
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	entries, err := NewClient(server.URL, "", "", false).GetEntries(context.Background(), time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("GetEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Got %d entries, want 0", len(entries))
	}
}

func TestClient_GetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		status := Status{
			Status:     "ok",
			Name:       "test-nightscout",
			Version:    "15.0.2",
			APIEnabled: true,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	status, err := client.GetStatus(context.Background())

	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("Status = %s, want ok", status.Status)
	}
	if status.Name != "test-nightscout" {
		t.Errorf("Name = %s, want test-nightscout", status.Name)
	}
}

func TestClient_PostTreatments(t *testing.T) {
	var received []Treatment
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/treatments" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	treatments := []Treatment{
		{EventType: EventMealBolus, CreatedAt: "2025-07-01T08:00:00Z", Insulin: 4, Carbs: 40},
		{EventType: EventBGCheck, CreatedAt: "2025-07-01T12:00:00Z", Glucose: 5.6, GlucoseType: "Finger", Units: "mmol"},
	}

	err := NewClient(server.URL, "", "", false).PostTreatments(context.Background(), treatments)
	if err != nil {
		t.Fatalf("PostTreatments() error = %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("server received %d treatments, want 2", len(received))
	}
	if received[0].Insulin != 4 || received[1].Units != "mmol" {
		t.Errorf("received = %+v", received)
	}
}

func TestClient_PostTreatments_Empty(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", "", false)

	if err := client.PostTreatments(context.Background(), nil); err != nil {
		t.Errorf("PostTreatments(nil) error = %v, want nil", err)
	}
}

func TestClient_TestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Status{Status: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	if err := client.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection() error = %v, want nil", err)
	}
}

func TestClient_AuthHeaders_Token(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "Bearer testtoken123" {
			t.Errorf("Authorization header = %s, want Bearer testtoken123", authHeader)
		}
		_ = json.NewEncoder(w).Encode(Status{Status: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "testtoken123", true)
	_, _ = client.GetStatus(context.Background())
}

func TestClient_AuthHeaders_Secret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secretHeader := r.Header.Get("API-SECRET")
		expectedHash := hashSecret("mysecret")
		if secretHeader != expectedHash {
			t.Errorf("API-SECRET header = %s, want %s", secretHeader, expectedHash)
		}
		_ = json.NewEncoder(w).Encode(Status{Status: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "mysecret", "", false)
	_, _ = client.GetStatus(context.Background())
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthorized"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "", false)
	if _, err := client.GetStatus(context.Background()); err == nil {
		t.Error("Expected error for 401 response")
	}
}
