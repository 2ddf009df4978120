package blob

import (
	"io"
	"net/http"

	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// Handler serves GET /blob/{key} as a raw byte stream.
func Handler(s *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		rc, _, err := s.Open(r.Context(), key)
		if err != nil {
			logx.Warn().Err(err).Str("object_key", key).Msg("blob fetch failed")
			http.Error(w, errx.MessageOf(err), errx.StatusOf(err))
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", DefaultMIME)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			logx.Warn().Err(err).Str("object_key", key).Msg("blob stream interrupted")
		}
	})
}
