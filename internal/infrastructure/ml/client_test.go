package ml

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SegmentCompass/internal/domain"
)

func TestClientPredict(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Features.F != 7 || req.Features.M != 420.5 || req.Features.S != 0.2 {
			t.Errorf("unexpected features: %+v", req.Features)
		}

		_, _ = w.Write([]byte(`{"tier":"gold","confidence":0.91,"model_version":"rf-3"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "secret", time.Second)
	pred, err := c.Predict(context.Background(), domain.FeatureVector{L: 12, R: 3, F: 7, M: 420.5, S: 0.2})
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}

	if pred.Tier != domain.TierGold {
		t.Fatalf("expected Gold, got %s", pred.Tier)
	}
	if pred.Confidence != 0.91 {
		t.Fatalf("expected confidence 0.91, got %v", pred.Confidence)
	}
	if pred.ModelVersion != "rf-3" {
		t.Fatalf("unexpected model version %q", pred.ModelVersion)
	}
}

func TestClientPredictErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, want: domain.ErrClassifierUnavailable},
		{name: "unknown label", status: http.StatusOK, body: `{"tier":"Diamond","confidence":0.9}`, want: domain.ErrInvalidPrediction},
		{name: "confidence out of range", status: http.StatusOK, body: `{"tier":"Gold","confidence":1.4}`, want: domain.ErrInvalidPrediction},
		{name: "confidence missing", status: http.StatusOK, body: `{"tier":"Gold"}`, want: domain.ErrInvalidPrediction},
		{name: "malformed body", status: http.StatusOK, body: `{`, want: domain.ErrInvalidPrediction},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "", time.Second).Predict(context.Background(), domain.FeatureVector{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClientPredictTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL, "", time.Minute).Predict(ctx, domain.FeatureVector{})
	if !errors.Is(err, domain.ErrClassifierTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClientWithoutEndpointIsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", "", time.Second).Predict(context.Background(), domain.FeatureVector{})
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
