package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/boardlink/internal/domain"
)

func TestGetBoards_ReturnsFormattedBoards(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/boards", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"b1","name":"Roadmap","createdBy":{"id":"u1"}}]}`))
	})
	h := newHandlerHarness(t, mux)
	require.NoError(t, h.vault.SetUserValue(context.Background(), "user1", domain.KeyTeamID, "team-9"))

	w := h.do(http.MethodGet, "/boards", "")
	require.Equal(t, http.StatusOK, w.Code)

	var boards []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &boards))
	require.Len(t, boards, 1)
	require.Equal(t, "b1", boards[0]["id"])
	require.Equal(t, domain.CreatorNamePlaceholder, boards[0]["createdByName"])
	require.Equal(t, false, boards[0]["trash"])
}

func TestGetBoards_UpstreamRejectionIsBadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/boards", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired at provider"}`))
	})
	h := newHandlerHarness(t, mux)

	w := h.do(http.MethodGet, "/boards", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	payload := decodeJSON(t, w)
	require.Equal(t, "Bad credentials", payload["error"])
}

func TestCreateBoard_RejectsInvalidBody(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(http.MethodPost, "/boards", `{"description":"no name or team"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBoard_ReturnsCreatedBoard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/boards", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"b3","name":"Planning","createdBy":{"id":"u1","name":"miro"}}`))
	})
	h := newHandlerHarness(t, mux)

	w := h.do(http.MethodPost, "/boards", `{"name":"Planning","teamId":"team-9"}`)
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeJSON(t, w)
	require.Equal(t, "b3", payload["id"])
	require.Equal(t, "miro", payload["createdByName"])
}

func TestDeleteBoard_OK(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/boards/b1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := newHandlerHarness(t, mux)

	w := h.do(http.MethodDelete, "/boards/b1", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetUserAvatar_ServesImageBytes(t *testing.T) {
	// A PNG signature so content-type sniffing resolves to image/png.
	png := append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, []byte("fake-png-payload")...)
	mux := http.NewServeMux()
	mux.HandleFunc("/users/u5/image", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(png)
	})
	h := newHandlerHarness(t, mux)

	w := h.do(http.MethodGet, "/users/u5/image", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
	require.Equal(t, png, w.Body.Bytes())
}

func TestGetUserAvatar_FallsBackToUserInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/u5", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u5","name":"Jane Doe"}`))
	})
	h := newHandlerHarness(t, mux)

	w := h.do(http.MethodGet, "/users/u5/image", "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeJSON(t, w)
	info, ok := payload["userInfo"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Jane Doe", info["name"])
}

func TestGetTeamAvatar_FallsBackToTeamInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teams/t1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"t1","name":"Platform"}`))
	})
	h := newHandlerHarness(t, mux)

	w := h.do(http.MethodGet, "/teams/t1/image", "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeJSON(t, w)
	info, ok := payload["teamInfo"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Platform", info["name"])
}
