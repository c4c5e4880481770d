package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxDeviceBody caps device request bodies for both encodings. The largest
// device message (a status report with firmware) is well under 200 bytes.
const maxDeviceBody = 4096

// maxAdminBody caps administrative request bodies, which may carry command
// payloads.
const maxAdminBody = 64 << 10

const protobufContentType = "application/x-protobuf"

var errBodyTooLarge = errors.New("request body too large")

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch strings.TrimSpace(ct) {
	case protobufContentType, "application/protobuf", "application/octet-stream":
		return true
	}
	return false
}

// readBody decodes the request body into v. A protobuf body is a
// google.protobuf.Struct mirroring the JSON object and is converted through
// protojson so both encodings share one set of request types. An empty body
// decodes as an empty object.
func readBody(r *http.Request, limit int64, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return err
	}
	if int64(len(body)) > limit {
		return errBodyTooLarge
	}

	if isProtobuf(r) {
		var s structpb.Struct
		if err := proto.Unmarshal(body, &s); err != nil {
			return err
		}
		if body, err = protojson.Marshal(&s); err != nil {
			return err
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// writeBody answers in the encoding the request was made in.
func writeBody(w http.ResponseWriter, r *http.Request, status int, v any) {
	if r == nil || !isProtobuf(r) {
		writeJSON(w, status, v)
		return
	}

	data, err := toStruct(v)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func toStruct(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return proto.Marshal(&s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
