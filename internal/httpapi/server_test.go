package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Portcullis/server/internal/httpapi"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

const (
	roomLab = "room-lab"
	userAna = "user-ana"
)

// newTestServer wires the core over a memory store holding one room and one
// user, and serves it through httptest.
func newTestServer(t *testing.T, ready func(context.Context) error) (*httptest.Server, *memory.Store) {
	t.Helper()

	ms := memory.New()
	ms.AddRoom(types.Room{ID: roomLab, Name: "Lab 101", BlockName: "Main Building"})
	ms.AddUser(types.User{ID: userAna, Name: "Ana Souza", IsAdmin: true})

	core := service.NewCore(service.Stores{
		Controllers: ms, Rooms: ms, Credentials: ms, AccessLogs: ms, Commands: ms,
	}, service.Config{})

	srv := httpapi.NewServer(httpapi.Dependencies{Addr: ":0", Core: core, Ready: ready})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, ms
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp, out
}

func register(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/devices/register", `{"controllerId":"ctrl-1","roomId":"room-lab","firmwareVersion":"1.0.0"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// ── Device routes ────────────────────────────────────────────────────────────

func TestRegisterAndHeartbeat(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/devices/register", `{"controllerId":"ctrl-1","roomId":"room-lab"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ctrl := body["controller"].(map[string]any)
	assert.Equal(t, "ctrl-1", ctrl["id"])
	assert.Equal(t, roomLab, ctrl["roomId"])
	assert.Nil(t, ctrl["firmwareVersion"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/heartbeat", `{"firmwareVersion":"1.2.4"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.4", body["controller"].(map[string]any)["firmwareVersion"])
}

func TestHeartbeat_UnknownController(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/devices/ghost/heartbeat", ``)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CONTROLLER_NOT_FOUND", body["code"])
	assert.Equal(t, "Controller not registered", body["error"])
}

func TestRegister_Validation(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/devices/register", `{"roomId":"room-lab"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/register", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestStatusReport(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	register(t, ts)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/status", `{"doorState":"OPEN","isLocked":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	room := body["room"].(map[string]any)
	assert.Equal(t, "OPEN", room["doorState"])
	assert.Equal(t, false, room["isLocked"])
	assert.NotNil(t, room["lastStatusUpdateAt"])

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/status", `{"doorState":"OPEN"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccessAttempt_GrantedAndDenied(t *testing.T) {
	ts, ms := newTestServer(t, nil)
	register(t, ts)
	ctx := context.Background()
	_, err := ms.IssueCredential(ctx, types.Credential{ID: "cred-1", UserID: userAna, Type: types.CredentialNFCTag, Value: "AA:01", Active: true})
	require.NoError(t, err)
	_, err = ms.GrantPermission(ctx, types.Permission{ID: "perm-1", UserID: userAna, RoomID: roomLab})
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/access-attempt",
		`{"credentialType":"NFC_TAG","credentialValue":"AA:01","requestId":"r-1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GRANTED", body["status"])
	assert.Nil(t, body["reason"])
	assert.Equal(t, "r-1", body["requestId"])
	assert.Equal(t, "Ana Souza", body["user"].(map[string]any)["name"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ghost/access-attempt",
		`{"credentialType":"NFC_TAG","credentialValue":"AA:01"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "denials are not errors")
	assert.Equal(t, "DENIED", body["status"])
	assert.Equal(t, "UNKNOWN_CONTROLLER", body["reason"])
}

func TestAccessAttempt_Protobuf(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	register(t, ts)

	in, err := structpb.NewStruct(map[string]any{"credentialType": "NFC_TAG", "credentialValue": "ZZ:99"})
	require.NoError(t, err)
	raw, err := proto.Marshal(in)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/v1/devices/ctrl-1/access-attempt", "application/x-protobuf", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &out))
	assert.Equal(t, "DENIED", out.Fields["status"].GetStringValue())
	assert.Equal(t, "UNKNOWN_CREDENTIAL", out.Fields["reason"].GetStringValue())
}

func TestDeviceBodyLimit(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	big := `{"controllerId":"ctrl-1","roomId":"` + strings.Repeat("x", 5000) + `"}`

	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/devices/register", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestCommandFlow(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	register(t, ts)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/commands", `{"type":"UNLOCK","expiresInSeconds":60}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["command"].(map[string]any)["id"].(string)
	assert.Equal(t, "PENDING", body["command"].(map[string]any)["status"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/commands/pull", `{"limit":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cmds := body["commands"].([]any)
	require.Len(t, cmds, 1)
	assert.Equal(t, "SENT", cmds[0].(map[string]any)["status"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/commands/pull", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["commands"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/commands/"+id+"/ack",
		`{"status":"COMPLETED","resultPayload":{"doorState":"UNLOCKED"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	acked := body["command"].(map[string]any)
	assert.Equal(t, id, acked["id"])
	assert.Equal(t, "COMPLETED", acked["status"])
	assert.NotNil(t, acked["processedAt"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/commands/missing/ack", `{"status":"FAILED"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "COMMAND_NOT_FOUND", body["code"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/commands/"+id+"/ack", `{"status":"SENT"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

// ── Administrative routes ────────────────────────────────────────────────────

func TestDoorsAndHistory(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	register(t, ts)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/doors/ctrl-1/commands", `{"type":"LOCK"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/doors/ghost/commands", `{"type":"LOCK"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/doors", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doors := body["doors"].([]any)
	require.Len(t, doors, 1)
	door := doors[0].(map[string]any)
	assert.Equal(t, "ctrl-1", door["controllerId"])
	assert.Equal(t, true, door["controller"].(map[string]any)["online"])
	assert.Equal(t, "LOCK", door["lastCommand"].(map[string]any)["type"])

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/doors/ctrl-1/commands?limit=5", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["commands"], 1)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/doors/ghost/commands", ``)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CONTROLLER_NOT_FOUND", body["code"])
}

func TestAccessLogsRoute(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	register(t, ts)

	do(t, http.MethodPost, ts.URL+"/v1/devices/ctrl-1/access-attempt", `{"credentialType":"NFC_TAG","credentialValue":"00:00"}`)

	resp, body := do(t, http.MethodGet, ts.URL+"/v1/doors/ctrl-1/access-logs?limit=10", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, roomLab, body["roomId"])
	logs := body["logs"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "UNKNOWN_CREDENTIAL", logs[0].(map[string]any)["reason"])
}

func TestCredentialAdministration(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/users/"+userAna+"/credentials", `{"type":"FINGERPRINT","value":"fp-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	credID := body["credential"].(map[string]any)["id"].(string)

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/users/"+userAna+"/credentials", `{"type":"FINGERPRINT","value":"fp-1"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["code"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/credentials/"+credID+"/deactivate", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["credential"].(map[string]any)["isActive"])

	resp, body = do(t, http.MethodPut, ts.URL+"/v1/users/"+userAna+"/permissions/"+roomLab, `{"expiresAt":"2030-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2030-01-01T00:00:00Z", body["permission"].(map[string]any)["expiresAt"])

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/users/"+userAna+"/permissions/"+roomLab, ``)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodDelete, ts.URL+"/v1/users/"+userAna+"/permissions/"+roomLab, ``)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/users", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, true, users[0].(map[string]any)["hasCredentials"])

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/rooms", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["rooms"], 1)
}

// ── Health ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	down, _ := newTestServer(t, func(context.Context) error { return errors.New("db gone") })
	resp, _ = do(t, http.MethodGet, down.URL+"/healthz", ``)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
