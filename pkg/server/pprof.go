package server

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/abgdnv/producttags/pkg/config"
)

// NewPprofServer returns a server exposing the runtime profiles under /debug/pprof/
// on its own mux, so they never leak onto the public listener. It also applies
// the configured block and mutex profile rates.
func NewPprofServer(cfg config.PProfConfig) *http.Server {
	runtime.SetBlockProfileRate(cfg.BlockProfileRate)
	runtime.SetMutexProfileFraction(cfg.MutexProfileFraction)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
}
