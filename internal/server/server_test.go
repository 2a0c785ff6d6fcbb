package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/cropform/internal/chain"
	"github.com/jask/cropform/internal/database"
	"github.com/jask/cropform/internal/database/repository"
	"github.com/jask/cropform/internal/forms"
	"github.com/jask/cropform/internal/lookup"
)

func newSeededServer(t *testing.T) *httptest.Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "lookup.db")
	require.NoError(t, database.RunMigrations(dbPath, "../database/migrations"))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.SeedDefaults(context.Background(), db))

	srv := httptest.NewServer(New(repository.NewLocationRepo(db), repository.NewCropRepo(db), nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestEnvelopeRoutes(t *testing.T) {
	srv := newSeededServer(t)

	var states struct {
		Success bool     `json:"success"`
		States  []string `json:"states"`
	}
	resp := getJSON(t, srv.URL+"/get-states", &states)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	require.True(t, states.Success)
	require.Contains(t, states.States, "Karnataka")

	var districts struct {
		Districts []string `json:"districts"`
	}
	getJSON(t, srv.URL+"/get-districts/Karnataka", &districts)
	require.Equal(t, []string{"Bangalore Urban", "Mandya", "Mysore"}, districts.Districts)

	var taluks struct {
		Taluks []string `json:"taluks"`
	}
	getJSON(t, srv.URL+"/get-taluks/Karnataka/Bangalore%20Urban", &taluks)
	require.Equal(t, []string{"Anekal", "Bangalore North", "Bangalore South"}, taluks.Taluks)

	var crops struct {
		Crops []string `json:"crops"`
	}
	getJSON(t, srv.URL+"/get-crops/Kerala/Whole%20Year", &crops)
	require.Equal(t, []string{"Banana", "Black pepper", "Coconut"}, crops.Crops)
}

func TestUnknownParentIsEmptyList(t *testing.T) {
	srv := newSeededServer(t)

	var districts struct {
		Success   bool     `json:"success"`
		Districts []string `json:"districts"`
	}
	getJSON(t, srv.URL+"/get-districts/Atlantis", &districts)
	require.True(t, districts.Success)
	require.NotNil(t, districts.Districts)
	require.Empty(t, districts.Districts)
}

func TestArrayRoutes(t *testing.T) {
	srv := newSeededServer(t)

	var states []string
	getJSON(t, srv.URL+"/api/states", &states)
	require.Contains(t, states, "Kerala")

	var districts []string
	getJSON(t, srv.URL+"/get_districts?state=Kerala", &districts)
	require.Equal(t, []string{"Ernakulam", "Kozhikode"}, districts)

	var taluks []string
	getJSON(t, srv.URL+"/get_taluks?state=Kerala&district=Ernakulam", &taluks)
	require.Equal(t, []string{"Aluva", "Kochi", "Muvattupuzha"}, taluks)

	var crops []string
	getJSON(t, srv.URL+"/get_crops?state=Karnataka&season=Rabi", &crops)
	require.Equal(t, []string{"Gram", "Jowar"}, crops)
}

func TestCropsQueryRequiresStateAndSeason(t *testing.T) {
	srv := newSeededServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/get_crops?state=Karnataka", &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "State and season are required", body["error"])
}

type brokenRepo struct{}

var errDisk = errors.New("disk I/O error")

func (brokenRepo) States(context.Context) ([]string, error) { return nil, errDisk }
func (brokenRepo) Districts(context.Context, string) ([]string, error) { return nil, errDisk }
func (brokenRepo) Taluks(context.Context, string, string) ([]string, error) { return nil, errDisk }
func (brokenRepo) Seasons(context.Context) ([]string, error) { return nil, errDisk }
func (brokenRepo) Crops(context.Context, string, string) ([]string, error) { return nil, errDisk }

func TestRepositoryFailureIs500(t *testing.T) {
	srv := httptest.NewServer(New(brokenRepo{}, brokenRepo{}, nil).Handler())
	defer srv.Close()

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp := getJSON(t, srv.URL+"/get-districts/Karnataka", &body)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, "failed to load districts", body.Error)

	client, err := lookup.NewClient(srv.URL)
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), lookup.Endpoint{Path: "/get-seasons", Field: "seasons"}, nil)
	var be *chain.BackendError
	require.ErrorAs(t, err, &be)
	require.Equal(t, http.StatusInternalServerError, be.Status)
	require.Equal(t, "failed to load seasons", be.Message)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- New(brokenRepo{}, brokenRepo{}, nil).Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/get_crops")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusBadRequest
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestLocationFormAgainstServer(t *testing.T) {
	srv := newSeededServer(t)
	client, err := lookup.NewClient(srv.URL)
	require.NoError(t, err)

	form, ok := forms.Find(forms.Defaults(), "location")
	require.True(t, ok)
	stages, err := form.Bind(client)
	require.NoError(t, err)
	c, err := chain.New(stages)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		notices []chain.Notice
	)
	loop := chain.NewLoop(c, func(n chain.Notice) {
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go func() { done <- loop.Run(runCtx) }()
	defer func() {
		stop()
		<-done
	}()

	require.NoError(t, loop.Init(ctx))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.Select(ctx, "state", "Karnataka"))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.Select(ctx, "district", "Mysore"))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.Select(ctx, "taluk", "Hunsur"))

	var state chain.SelectionState
	var talukOpts []chain.Option
	var validateErr error
	require.NoError(t, loop.View(ctx, func(c *chain.Chain) {
		state = c.State()
		talukOpts = c.Options("taluk")
		validateErr = c.Validate()
	}))
	require.Equal(t, chain.SelectionState{"state": "Karnataka", "district": "Mysore", "taluk": "Hunsur"}, state)
	require.Equal(t, "Select Taluk", talukOpts[0].Label)
	require.Len(t, talukOpts, 5)
	require.NoError(t, validateErr)

	// Kerala has no Mysore; switching state clears district and taluk.
	require.NoError(t, loop.Select(ctx, "state", "Kerala"))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.View(ctx, func(c *chain.Chain) {
		state = c.State()
		validateErr = c.Validate()
	}))
	require.Equal(t, chain.SelectionState{"state": "Kerala", "district": "", "taluk": ""}, state)
	var ve *chain.ValidationError
	require.ErrorAs(t, validateErr, &ve)
	require.Equal(t, "district", ve.Stage)

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, notices)
}

type panicRepo struct{ brokenRepo }

func (panicRepo) States(context.Context) ([]string, error) { panic("nil map") }

func TestMiddlewareChain(t *testing.T) {
	srv := httptest.NewServer(New(panicRepo{}, panicRepo{}, nil).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/get_crops", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "form-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "form-42", resp.Header.Get("X-Request-Id"))

	// a panicking handler is recovered into a 500 and the server keeps serving
	resp, err = http.Get(srv.URL + "/get-states")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/get-seasons")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

type recordingRepo struct {
	brokenRepo
	state, district string
}

func (r *recordingRepo) Taluks(_ context.Context, state, district string) ([]string, error) {
	r.state, r.district = state, district
	return []string{"Silvassa"}, nil
}

func TestPathParamsAreUnescaped(t *testing.T) {
	repo := &recordingRepo{}
	srv := httptest.NewServer(New(repo, repo, nil).Handler())
	defer srv.Close()

	var taluks struct {
		Taluks []string `json:"taluks"`
	}
	resp := getJSON(t, srv.URL+"/get-taluks/Dadra%2FNagar%20Haveli/Tamil%20Nadu", &taluks)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Dadra/Nagar Haveli", repo.state)
	require.Equal(t, "Tamil Nadu", repo.district)
	require.Equal(t, []string{"Silvassa"}, taluks.Taluks)
}
