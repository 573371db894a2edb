package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relaychat/internal/handler"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/resp"
)

// stubStorage stands in for the S3 client. Presigns echo deterministic URLs,
// metadata lookups fail for keys listed in missing, and deletes are recorded.
type stubStorage struct {
	missing map[string]bool
	deleted []string
}

func (s *stubStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + key, nil
}

func (s *stubStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + key, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStorage) GetObjectMetadata(_ context.Context, key string) (map[string]string, error) {
	if s.missing[key] {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return map[string]string{"Content-Type": "image/png"}, nil
}

func newFileTestDeps() (*handler.AppDeps, *stubStorage) {
	deps := newTestDeps()
	st := &stubStorage{missing: map[string]bool{}}
	deps.StorageService = st
	return deps, st
}

// asUser stamps the request with an authenticated identity the way the JWT
// middleware would.
func asUser(r *http.Request, username string) *http.Request {
	payload := &jwt.Payload{Username: username}
	return r.WithContext(context.WithValue(r.Context(), jwt.ContextAuthPayloadKey, payload))
}

// postAsUser builds an authenticated JSON POST request.
func postAsUser(t *testing.T, target string, body any, username string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, target, jsonBody(t, body))
	r.Header.Set("Content-Type", "application/json")
	return asUser(r, username)
}

func TestPresignUploadRequiresMembership(t *testing.T) {
	deps, _ := newFileTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)

	input := handler.PresignUploadInput{
		ChannelID: ch.ID,
		FileName:  "diagram.png",
		MimeType:  "image/png",
		FileSize:  1024,
	}

	w := httptest.NewRecorder()
	handler.HandlePresignUploadURL(deps)(w, postAsUser(t, "/api/file/presign-upload", input, "mallory"))
	require.Equal(t, errs.ErrUnauthorized, decodeResponse(t, w).Code)

	w = httptest.NewRecorder()
	handler.HandlePresignUploadURL(deps)(w, postAsUser(t, "/api/file/presign-upload", input, "alice"))
	decoded := decodeResponse(t, w)
	require.Equal(t, 0, decoded.Code)

	data, ok := decoded.Data.(map[string]any)
	require.True(t, ok)
	require.Contains(t, data["fileKey"], ch.ID+"/")
	require.Contains(t, data["presignedUrl"], "https://storage.test/upload/")
}

func TestPresignUploadRejectsAnonymous(t *testing.T) {
	deps, _ := newFileTestDeps()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/file/presign-upload", jsonBody(t, handler.PresignUploadInput{}))
	r.Header.Set("Content-Type", "application/json")
	handler.HandlePresignUploadURL(deps)(w, r)
	require.Equal(t, errs.ErrUnauthorized, decodeResponse(t, w).Code)
}

func TestPresignDownloadRedirectsForMember(t *testing.T) {
	deps, _ := newFileTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)
	fileKey := ch.ID + "/abc123.png"

	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest(http.MethodGet, "/api/file/presign-download?k="+fileKey, nil), "alice")
	handler.HandlePresignDownloadURL(deps)(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://storage.test/download/"+fileKey, w.Header().Get("Location"))
}

func TestPresignDownloadRejectsMissingObject(t *testing.T) {
	deps, st := newFileTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)
	fileKey := ch.ID + "/gone.png"
	st.missing[fileKey] = true

	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest(http.MethodGet, "/api/file/presign-download?k="+fileKey, nil), "alice")
	handler.HandlePresignDownloadURL(deps)(w, r)

	require.Equal(t, errs.ErrAttachmentKeyInvalid, decodeResponse(t, w).Code)
}

func TestDeleteAttachmentCreatorOnly(t *testing.T) {
	deps, st := newFileTestDeps()
	ctx := context.Background()

	ch, customErr := deps.Registry.Create(ctx, "gophers", "", "alice")
	require.Nil(t, customErr)
	_, _, customErr = deps.Registry.Join(ctx, ch.ID, "bob", "")
	require.Nil(t, customErr)
	fileKey := ch.ID + "/abc123.png"

	w := httptest.NewRecorder()
	handler.HandleDeleteAttachment(deps)(w, postAsUser(t, "/api/file/delete", handler.DeleteAttachmentInput{FileKey: fileKey}, "bob"))
	require.Equal(t, errs.ErrNotChannelOwner, decodeResponse(t, w).Code)
	require.Empty(t, st.deleted)

	w = httptest.NewRecorder()
	handler.HandleDeleteAttachment(deps)(w, postAsUser(t, "/api/file/delete", handler.DeleteAttachmentInput{FileKey: fileKey}, "alice"))
	require.Equal(t, 0, decodeResponse(t, w).Code)
	require.Equal(t, []string{fileKey}, st.deleted)
}

func TestDeleteAttachmentMalformedKey(t *testing.T) {
	deps, st := newFileTestDeps()

	w := httptest.NewRecorder()
	handler.HandleDeleteAttachment(deps)(w, postAsUser(t, "/api/file/delete", handler.DeleteAttachmentInput{FileKey: "no-prefix.png"}, "alice"))
	require.Equal(t, errs.ErrAttachmentKeyInvalid, decodeResponse(t, w).Code)
	require.Empty(t, st.deleted)
}

func jsonBody(t *testing.T, body any) io.Reader {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

// decodeResponse parses the JSON envelope out of a recorded response.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) resp.JSONResponse {
	t.Helper()

	var decoded resp.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return decoded
}
