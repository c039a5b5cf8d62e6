package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

const (
	Header         = "Idempotency-Key"
	ReplayedHeader = "Idempotent-Replayed"
)

const maxFingerprintBytes = 1 << 20

// Middleware makes a handler safe to retry with the same Idempotency-Key:
// the first completed response (anything but a 5xx) is stored and replayed,
// and a duplicate arriving while the first is still running gets 409.
// Reusing a key with a different body gets 422. Requests without the header
// pass straight through, and so does everything when the store is
// unreachable. The key's lock is released whenever no response got stored,
// including when the handler panics.
func Middleware(store Store, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			scope := r.Method + " " + r.URL.Path

			fingerprint, err := fingerprintBody(r)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "request body could not be read")
				return
			}

			resp, ok, err := store.Recall(ctx, scope, key)
			if err != nil {
				log.WarnContext(ctx, "idempotency recall failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if ok {
				if resp.Fingerprint != fingerprint {
					writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request body")
					return
				}
				replay(w, resp)
				return
			}

			locked, err := store.TryLock(ctx, scope, key)
			if err != nil {
				log.WarnContext(ctx, "idempotency lock failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !locked {
				writeError(w, http.StatusConflict, "a request with this Idempotency-Key is already in progress")
				return
			}

			stored := false
			defer func() {
				if stored {
					return
				}
				if err := store.Release(context.WithoutCancel(ctx), scope, key); err != nil {
					log.WarnContext(ctx, "idempotency release failed", "key", key, "err", err)
				}
			}()

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				return
			}
			out := Response{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				Fingerprint: fingerprint,
			}
			if err := store.Remember(ctx, scope, key, out); err != nil {
				log.WarnContext(ctx, "idempotency remember failed", "key", key, "err", err)
				return
			}
			stored = true
		})
	}
}

// fingerprintBody hashes the request body and puts it back for the handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFingerprintBytes+1))
	if err != nil {
		return "", err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func replay(w http.ResponseWriter, resp Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
