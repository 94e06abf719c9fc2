package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipherd/clipherd/internal/devkit"
	"github.com/clipherd/clipherd/internal/phash"
	"github.com/clipherd/clipherd/pkg/clipherd"
	"github.com/clipherd/clipherd/pkg/clipherd/repo/memory"
	memorystorage "github.com/clipherd/clipherd/pkg/clipherd/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, clipherd.Service, clipherd.Repository) {
	t.Helper()

	repo := memory.New()
	svc, err := clipherd.New(
		clipherd.WithRepository(repo),
		clipherd.WithBlobStore(memorystorage.New()),
		clipherd.WithScraper(devkit.StubScraper{}),
		clipherd.WithPoster(devkit.LogPoster{}),
		clipherd.WithFrameExtractor(devkit.ByteFrameExtractor{}),
		clipherd.WithPerceptualHasher(phash.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/accounts", NewAccountHandler(svc).Routes())
	r.Mount("/items", NewItemHandler(svc).Routes())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, svc, repo
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRegisterAccountEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	t.Run("creates account with parsed durations", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/", RegisterAccountRequest{
			Account:         "acct",
			PostingInterval: "2h",
			JitterFraction:  0.1,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body AccountResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "acct", body.Account)
		assert.Equal(t, string(clipherd.HealthActive), body.Health)
		assert.False(t, body.Paused)
	})

	t.Run("duplicate returns conflict", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/", RegisterAccountRequest{Account: "acct"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("missing name is a bad request", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/", RegisterAccountRequest{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unparseable interval is a bad request", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/", RegisterAccountRequest{
			Account:         "other",
			PostingInterval: "soon",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetAndListAccounts(t *testing.T) {
	server, svc, _ := newTestServer(t)
	ctx := context.Background()
	_, err := svc.RegisterAccount(ctx, clipherd.RegisterAccountRequest{Account: "acct"})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/accounts/acct")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body AccountResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "acct", body.Account)
	})

	t.Run("get unknown", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/accounts/ghost")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/accounts/")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body []AccountResponse
		decodeBody(t, resp, &body)
		require.Len(t, body, 1)
		assert.Equal(t, "acct", body[0].Account)
	})
}

func TestQueueEndpoint(t *testing.T) {
	server, svc, repo := newTestServer(t)
	ctx := context.Background()
	_, err := svc.RegisterAccount(ctx, clipherd.RegisterAccountRequest{Account: "acct"})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateItem(ctx, &clipherd.ContentItem{
		ID: uuid.New(), Account: "acct", SourceRef: "clip",
		Status: clipherd.ItemStatusPendingReview, DiscoveredAt: now, UpdatedAt: now,
	}))

	resp, err := http.Get(server.URL + "/accounts/acct/queue")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap clipherd.QueueSnapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, "acct", snap.Account)
	assert.Len(t, snap.PendingReview, 1)
	assert.Equal(t, 1, snap.RemainingItems)
	assert.True(t, snap.QueueLow)
}

func TestCommandEndpoints(t *testing.T) {
	server, svc, repo := newTestServer(t)
	ctx := context.Background()
	_, err := svc.RegisterAccount(ctx, clipherd.RegisterAccountRequest{Account: "acct"})
	require.NoError(t, err)

	itemID := uuid.New()

	t.Run("submit discovery", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/discoveries", SubmitDiscoveryRequest{
			SourceRef: "clip-1",
			Caption:   "cap",
		})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		_, err := uuid.Parse(body["command_id"])
		assert.NoError(t, err)
	})

	t.Run("discovery without source ref", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/discoveries", SubmitDiscoveryRequest{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("accept", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/items/"+itemID.String()+"/accept", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("reject", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/items/"+itemID.String()+"/reject", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("edit", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, server.URL+"/accounts/acct/items/"+itemID.String(), EditItemRequest{
			Caption:  "new",
			Hashtags: "#tag",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("bad item id", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/items/not-a-uuid/accept", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("pause and resume", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/pause", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		resp = doJSON(t, http.MethodPost, server.URL+"/accounts/acct/resume", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("unknown account", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/accounts/ghost/resume", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	// Every accepted command is durably recorded for the supervisor.
	cmds, err := repo.PendingCommands(ctx, "acct")
	require.NoError(t, err)
	assert.Len(t, cmds, 6)
}

func TestHaltedAccountConflicts(t *testing.T) {
	server, svc, repo := newTestServer(t)
	ctx := context.Background()
	_, err := svc.RegisterAccount(ctx, clipherd.RegisterAccountRequest{Account: "acct"})
	require.NoError(t, err)

	state, err := repo.GetAccount(ctx, "acct")
	require.NoError(t, err)
	state.Halted = true
	require.NoError(t, repo.UpdateAccount(ctx, state))

	resp := doJSON(t, http.MethodPost, server.URL+"/accounts/acct/items/"+uuid.NewString()+"/accept", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/accounts/acct/resume", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestItemEndpoint(t *testing.T) {
	server, _, repo := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	item := &clipherd.ContentItem{
		ID:           uuid.New(),
		Account:      "acct",
		SourceRef:    "clip",
		Status:       clipherd.ItemStatusPendingReview,
		Fingerprints: clipherd.FingerprintSet{0xdeadbeef, 1, 2, 3},
		DiscoveredAt: now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.CreateItem(ctx, item))

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/items/" + item.ID.String())
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got clipherd.ContentItem
		decodeBody(t, resp, &got)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, item.Fingerprints, got.Fingerprints)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/items/" + uuid.NewString())
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/items/not-a-uuid")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
