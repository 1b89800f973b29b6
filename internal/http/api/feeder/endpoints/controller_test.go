package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/redis"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/storage"
)

const testSecret = "test-secret"

var errNotFound = errors.New("not found")

type memoryStore struct {
	users    map[int]*model.User
	feeders  map[int]model.Feeder
	feedings []model.Feeding
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users: map[int]*model.User{
			1: {ID: 1, Email: "owner@example.com"},
			2: {ID: 2, Email: "other@example.com"},
		},
		feeders: map[int]model.Feeder{},
	}
}

func (m *memoryStore) GetUserByID(_ context.Context, id int) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (m *memoryStore) CreateFeeder(_ context.Context, name string, petName *string, createdBy int) (model.Feeder, error) {
	fd := model.Feeder{ID: len(m.feeders) + 1, Name: name, PetName: petName, CreatedBy: createdBy, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.feeders[fd.ID] = fd
	return fd, nil
}

func (m *memoryStore) GetFeederByID(_ context.Context, id int) (model.Feeder, error) {
	fd, ok := m.feeders[id]
	if !ok {
		return model.Feeder{}, errNotFound
	}
	return fd, nil
}

func (m *memoryStore) ListFeeders(_ context.Context, ownerID int) ([]model.Feeder, error) {
	var out []model.Feeder
	for _, fd := range m.feeders {
		if fd.CreatedBy == ownerID {
			out = append(out, fd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) UpdateFeeder(_ context.Context, id int, name, petName *string) error {
	fd, ok := m.feeders[id]
	if !ok {
		return errNotFound
	}
	if name != nil {
		fd.Name = *name
	}
	if petName != nil {
		fd.PetName = petName
	}
	m.feeders[id] = fd
	return nil
}

func (m *memoryStore) SetFeederPhoto(_ context.Context, id int, url string) error {
	fd := m.feeders[id]
	fd.PhotoURL = &url
	m.feeders[id] = fd
	return nil
}

func (m *memoryStore) PairFeeder(_ context.Context, id int, deviceID string) error {
	fd := m.feeders[id]
	fd.DeviceID = &deviceID
	fd.Paired = true
	m.feeders[id] = fd
	return nil
}

func (m *memoryStore) RecordFeeding(_ context.Context, f model.Feeding) error {
	m.feedings = append(m.feedings, f)
	return nil
}

func (m *memoryStore) ListFeedings(_ context.Context, feederID, limit int) ([]model.Feeding, error) {
	var out []model.Feeding
	for i := len(m.feedings) - 1; i >= 0 && len(out) < limit; i-- {
		if m.feedings[i].FeederID == feederID {
			out = append(out, m.feedings[i])
		}
	}
	return out, nil
}

type memoryConfigs map[int]model.MealConfig

func (m memoryConfigs) Load(_ context.Context, feederID int) (model.MealConfig, error) {
	cfg, ok := m[feederID]
	if !ok {
		return model.MealConfig{}, fmt.Errorf("feeder %d: %w", feederID, feeding.ErrNotConfigured)
	}
	return cfg, nil
}

func (m memoryConfigs) Save(_ context.Context, feederID int, cfg model.MealConfig) error {
	m[feederID] = cfg
	return nil
}

type sentCommand struct {
	deviceID string
	cmd      middleware.Command
}

type recordingPublisher struct {
	sent []sentCommand
	err  error
}

func (p *recordingPublisher) SendCommand(deviceID string, cmd middleware.Command) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sentCommand{deviceID: deviceID, cmd: cmd})
	return nil
}

type fakeMirror struct {
	err     error
	configs int
	feeds   int
}

func (m *fakeMirror) SaveMealConfig(context.Context, string, model.MealConfig) error {
	if m.err != nil {
		return m.err
	}
	m.configs++
	return nil
}

func (m *fakeMirror) Feed(context.Context, string) error {
	if m.err != nil {
		return m.err
	}
	m.feeds++
	return nil
}

type memoryPairing map[string]string

func (p memoryPairing) ResolvePairingCode(_ context.Context, code string) (string, error) {
	id, ok := p[code]
	if !ok {
		return "", redis.ErrCodeNotFound
	}
	return id, nil
}

func (p memoryPairing) DeletePairingCode(_ context.Context, code string) error {
	delete(p, code)
	return nil
}

type memoryPhotos struct{ saved map[string][]byte }

func (s *memoryPhotos) SavePhoto(_ context.Context, filename string, body io.ReadSeeker) (string, error) {
	if filename == "notes.txt" {
		return "", storage.ErrUnsupportedType
	}
	data, _ := io.ReadAll(body)
	s.saved[filename] = data
	return "/uploads/" + filename, nil
}

type harness struct {
	router    *gin.Engine
	store     *memoryStore
	configs   memoryConfigs
	publisher *recordingPublisher
	mirror    *fakeMirror
	pairing   memoryPairing
	photos    *memoryPhotos
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		store:     newMemoryStore(),
		configs:   memoryConfigs{},
		publisher: &recordingPublisher{},
		mirror:    &fakeMirror{},
		pairing:   memoryPairing{},
		photos:    &memoryPhotos{saved: map[string][]byte{}},
		now:       time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC),
	}
	h.router = gin.New()
	api.MountGroup(h.router, api.GroupConfig{Prefix: "/api", Auth: true, SecretKey: testSecret, Users: h.store},
		FeederModule(Deps{
			Store:   h.store,
			Configs: h.configs,
			Devices: h.publisher,
			Mirror:  h.mirror,
			Pairing: h.pairing,
			Storage: h.photos,
			Clock:   feeding.ClockFunc(func() time.Time { return h.now }),
		}),
	)
	return h
}

func (h *harness) token(t *testing.T, userID int) string {
	t.Helper()
	tok, err := middleware.GenerateJWT(userID, testSecret)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, userID int, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token(t, userID))
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) upload(t *testing.T, userID int, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.token(t, userID))
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// seedFeeder creates a feeder for user 1, paired to device when device is not empty.
func (h *harness) seedFeeder(t *testing.T, petName, device string) model.Feeder {
	t.Helper()
	pet := petName
	fd, err := h.store.CreateFeeder(context.Background(), "Kitchen feeder", &pet, 1)
	require.NoError(t, err)
	if device != "" {
		require.NoError(t, h.store.PairFeeder(context.Background(), fd.ID, device))
	}
	fd, _ = h.store.GetFeederByID(context.Background(), fd.ID)
	return fd
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
