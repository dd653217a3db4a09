package xhttp

import (
	"crypto/tls"
	"net"
	"os"
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	defaultReadBufferSize  = 1024 * 4
	defaultWriteBufferSize = 1024 * 4
	defaultReadTimeout     = time.Millisecond * 2500
	defaultWriteTimeout    = time.Millisecond * 2500
	defaultRequestTimeout  = time.Millisecond * 5000
)

var DefaultServerOption = ServerOption{
	Handler: func(ctx *RequestCtx) {
		ctx.Error(StatusText(StatusNotFound), StatusNotFound)
	},
	IdleTimeout:           time.Second * 10,
	MaxIdleWorkerDuration: time.Minute * 1,
	TCPKeepalivePeriod:    time.Minute * 120,
	MaxRequestBodySize:    4 * 1024 * 1024,
	RequestTimeout:        defaultRequestTimeout,
	ReadBufferSize:        defaultReadBufferSize, // also, max header size
	WriteBufferSize:       defaultWriteBufferSize,
	ReadTimeout:           defaultReadTimeout,
	WriteTimeout:          defaultWriteTimeout,
	Concurrency:           30_000,
	MaxConnsPerIP:         10_000,
	MaxRequestsPerConn:    0, // unlimited
	ErrorHandler: func(ctx *RequestCtx, err error) {
		ctx.Logger().Printf("[xhttp] error: %s", err)
	},
	TCPKeepalive:                 true,
	DisablePreParseMultipartForm: true,
	LogAllErrors:                 true,
	NoDefaultServerHeader:        true,
	NoDefaultDate:                true,
	NoDefaultContentType:         true,
	CloseOnShutdown:              true,
	CompressionLevel:             fasthttp.CompressBestSpeed,
}

type RequestHeader = fasthttp.RequestHeader
type ResponseHeader = fasthttp.ResponseHeader
type Server = fasthttp.Server

type ServerOption struct {
	Handler RequestHandler

	// idle connections held open too long run the process out of file
	// descriptors, so they are bounded
	IdleTimeout           time.Duration
	MaxIdleWorkerDuration time.Duration
	TCPKeepalivePeriod    time.Duration
	MaxRequestBodySize    int

	RequestTimeout time.Duration

	// per-connection buffer for request reading; also caps header size
	ReadBufferSize  int
	WriteBufferSize int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Concurrency is the maximum number of concurrent connections to serve
	Concurrency        int
	MaxConnsPerIP      int
	MaxRequestsPerConn int

	ErrorHandler                  func(ctx *RequestCtx, err error)
	HeaderReceived                func(header *RequestHeader) fasthttp.RequestConfig
	ContinueHandler               func(header *RequestHeader) bool
	Name                          string
	DisableKeepalive              bool
	TCPKeepalive                  bool
	ReduceMemoryUsage             bool
	GetOnly                       bool
	DisablePreParseMultipartForm  bool
	LogAllErrors                  bool
	SecureErrorLogMessage         bool
	DisableHeaderNamesNormalizing bool
	NoDefaultServerHeader         bool
	NoDefaultDate                 bool
	NoDefaultContentType          bool
	KeepHijackedConns             bool
	CloseOnShutdown               bool
	StreamRequestBody             bool
	ConnState                     func(net.Conn, fasthttp.ConnState)
	TLSConfig                     *tls.Config
	CompressionLevel              int
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                       options.Handler,
		ErrorHandler:                  options.ErrorHandler,
		HeaderReceived:                options.HeaderReceived,
		ContinueHandler:               options.ContinueHandler,
		Name:                          options.Name,
		Concurrency:                   options.Concurrency,
		ReadBufferSize:                options.ReadBufferSize,
		WriteBufferSize:               options.WriteBufferSize,
		ReadTimeout:                   options.ReadTimeout,
		WriteTimeout:                  options.WriteTimeout,
		IdleTimeout:                   options.IdleTimeout,
		MaxConnsPerIP:                 options.MaxConnsPerIP,
		MaxRequestsPerConn:            options.MaxRequestsPerConn,
		MaxIdleWorkerDuration:         options.MaxIdleWorkerDuration,
		TCPKeepalivePeriod:            options.TCPKeepalivePeriod,
		MaxRequestBodySize:            options.MaxRequestBodySize,
		DisableKeepalive:              options.DisableKeepalive,
		TCPKeepalive:                  options.TCPKeepalive,
		ReduceMemoryUsage:             options.ReduceMemoryUsage,
		GetOnly:                       options.GetOnly,
		DisablePreParseMultipartForm:  options.DisablePreParseMultipartForm,
		LogAllErrors:                  options.LogAllErrors,
		SecureErrorLogMessage:         options.SecureErrorLogMessage,
		DisableHeaderNamesNormalizing: options.DisableHeaderNamesNormalizing,
		NoDefaultServerHeader:         options.NoDefaultServerHeader,
		NoDefaultDate:                 options.NoDefaultDate,
		NoDefaultContentType:          options.NoDefaultContentType,
		KeepHijackedConns:             options.KeepHijackedConns,
		CloseOnShutdown:               options.CloseOnShutdown,
		StreamRequestBody:             options.StreamRequestBody,
		ConnState:                     options.ConnState,
		Logger:                        logger.GetLogger(),
		TLSConfig:                     options.TLSConfig,
	}
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: NewRouter(),
		option: options,
	}
}

func CreateServer() *Engine {
	s := NewServer(DefaultServerOption)
	s.Router = CreateDefaultRouter()
	s.Server.Logger = logger.GetLogger()
	return s
}

func (e *Engine) ListenAndServe(addr string) error {
	if err := e.DoRouting(); err != nil {
		return err
	}
	e.Server.Logger.Printf("[xhttp] server is listening on %s", addr)
	return e.Server.ListenAndServe(addr)
}

// DoRouting wires the router and the middleware chain into the underlying
// server. Middlewares are applied in reverse registration order so the first
// one registered is the outermost.
func (e *Engine) DoRouting() error {
	for method, route := range e.Router.List() {
		for _, r := range route {
			e.Server.Logger.Printf("[xhttp] method: %s, path: %s", method, r)
		}
	}
	e.Server.Handler = e.Router.Handler
	slices.Reverse(e.middle)
	for i, m := range e.middle {
		e.Server.Handler = m(e.Server.Handler)
		e.Server.Logger.Printf("[xhttp] middleware %d registered - %s", i+1, runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	return nil
}

// Use adds middleware to the chain which is run for every request.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown gracefully shuts down the server without interrupting any active
// connections.
func (e *Engine) Shutdown() {
	e.Server.Logger.Printf("[xhttp] server is shutting down, process id: %d", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		e.Server.Logger.Printf("[xhttp] error while shutting down: %v", err)
	}
}
