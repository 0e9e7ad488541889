package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollguard/pkg/platform/sentinel"
)

func TestHTTPClientGetEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("known voter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/voters/voter-1", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			_ = json.NewEncoder(w).Encode(eligibilityResponse{
				VoterID:           "voter-1",
				DisplayName:       "Ada Quorum",
				AssignedStationID: "station-1",
				Status:            "active",
			})
		}))
		defer srv.Close()

		elig, err := NewHTTPClient(srv.URL).GetEligibility(ctx, "voter-1")
		require.NoError(t, err)
		assert.Equal(t, "Ada Quorum", elig.DisplayName)
		assert.Equal(t, "station-1", elig.AssignedStationID)
		assert.Equal(t, StatusActive, elig.Status)
	})

	t.Run("unknown voter maps to not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL).GetEligibility(ctx, "voter-ghost")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL).GetEligibility(ctx, "voter-1")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("unreachable registry maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(nil)
		srv.Close()

		_, err := NewHTTPClient(srv.URL).GetEligibility(ctx, "voter-1")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestHTTPClientMarkVoted(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the status update", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		err := NewHTTPClient(srv.URL).MarkVoted(ctx, "voter-1")
		require.NoError(t, err)
		assert.Equal(t, "/voters/voter-1/status", gotPath)
		assert.Equal(t, "voted", gotBody["status"])
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewHTTPClient(srv.URL).MarkVoted(ctx, "voter-1")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}
