package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/sound-monitor/internal/loudness"
	"github.com/sweeney/sound-monitor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		CycleMs:          1000,
		UplinkIntervalMs: 10000,
		HeartbeatMs:      900000,
		Transport:        "thingspeak",
		UplinkHost:       "api.thingspeak.com",
		Broker:           "tcp://192.168.1.200:1883",
		HTTPAddr:         ":80",
	}
	tr := status.NewTracker(start, cfg)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "sound_monitor_up 1\n")
	})
	srv := New(":0", tr, metrics)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetState("RUNNING")
	tr.RecordReading(loudness.Reading{
		Time:     time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
		Decibels: 58.538,
		Class:    loudness.High,
	})
	tr.SetMQTTConnected(true)
	tr.SetUplink(status.UplinkStats{Issued: 4, Delivered: 3, Failed: 1})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "RUNNING" {
		t.Errorf("State: got %q, want RUNNING", sj.Status.State)
	}
	if sj.Status.Reading == nil {
		t.Fatal("expected Reading in JSON")
	}
	if sj.Status.Reading.Decibels != 58.54 {
		t.Errorf("Reading.Decibels: got %v, want 58.54", sj.Status.Reading.Decibels)
	}
	if sj.Status.Reading.Class != "HIGH" {
		t.Errorf("Reading.Class: got %q, want HIGH", sj.Status.Reading.Class)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Uplink.Delivered != 3 {
		t.Errorf("Uplink.Delivered: got %d, want 3", sj.Status.Uplink.Delivered)
	}
	if sj.Status.Uplink.Transport != "thingspeak" {
		t.Errorf("Uplink.Transport: got %q, want thingspeak", sj.Status.Uplink.Transport)
	}
	if sj.Status.Config.CycleMs != 1000 {
		t.Errorf("Config.CycleMs: got %d, want 1000", sj.Status.Config.CycleMs)
	}
}

func TestJSONNoReadingWhileIdle(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", sj.Status.State)
	}
	if sj.Status.Reading != nil {
		t.Errorf("expected no reading, got %+v", sj.Status.Reading)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetState("RUNNING")
	tr.RecordReading(loudness.Reading{Decibels: 95.2, Class: loudness.Extreme})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "95.20 dB") {
		t.Error("expected level in HTML body")
	}
	if !strings.Contains(string(body), `class="extreme"`) {
		t.Error("expected extreme class styling in HTML body")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sound_monitor_up 1") {
		t.Errorf("metrics body: got %q", body)
	}
}

func TestMetricsAbsentWithoutHandler(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Connected {
		t.Error("expected Connected=false initially")
	}

	tr.SetState("RUNNING")
	tr.SetConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Connected {
		t.Error("expected Connected=true after update")
	}
	if sj2.Status.State != "RUNNING" {
		t.Errorf("State: got %q, want RUNNING", sj2.Status.State)
	}
}

func getHealth(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealthIdle(t *testing.T) {
	ts, _ := newTestServer(t)

	code, body := getHealth(t, ts.URL)
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if body != "ok IDLE\n" {
		t.Errorf("body: got %q", body)
	}
}

func TestHealthRunningWithFreshReading(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetState("RUNNING")
	tr.RecordReading(loudness.Reading{Time: time.Now(), Decibels: 40, Class: loudness.Moderate})

	code, body := getHealth(t, ts.URL)
	if code != 200 {
		t.Errorf("status: got %d, want 200 (body %q)", code, body)
	}
}

func TestHealthRunningWithStaleReading(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetState("RUNNING")
	tr.RecordReading(loudness.Reading{Time: time.Now().Add(-time.Minute), Decibels: 40, Class: loudness.Moderate})

	code, body := getHealth(t, ts.URL)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
	if !strings.HasPrefix(body, "stale:") {
		t.Errorf("body: got %q", body)
	}
}
