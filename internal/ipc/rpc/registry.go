package rpc

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
)

// Handler executes one method over arguments already validated against
// the method's parameter descriptors.
type Handler func(ctx context.Context, args []any) (any, error)

// Method is one entry of the closed method catalog.
type Method struct {
	Name    string
	Params  []Param
	Returns string
	Handler Handler
}

// Registry maps method names to handlers. The catalog is fixed at
// startup; Dispatch only reads, so no locking is needed afterwards.
type Registry struct {
	methods map[string]Method
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger, metrics *monitoring.Metrics) *Registry {
	return &Registry{
		methods: make(map[string]Method),
		log:     log,
		metrics: metrics,
	}
}

// Register adds a method to the catalog.
func (r *Registry) Register(m Method) error {
	if m.Name == "" {
		return fmt.Errorf("method name cannot be empty")
	}
	if m.Handler == nil {
		return fmt.Errorf("method %q has no handler", m.Name)
	}
	if _, exists := r.methods[m.Name]; exists {
		return fmt.Errorf("method %q already registered", m.Name)
	}
	r.methods[m.Name] = m
	return nil
}

// Methods returns the catalog names, sorted, for the debug surface.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch validates params and invokes the named method. All failure
// modes come back as a Fault; a panicking handler is recovered and
// reported as an internal fault so the owning session survives.
func (r *Registry) Dispatch(ctx context.Context, method string, params []byte) (result any, fault *Fault) {
	m, ok := r.methods[method]
	if !ok {
		r.observe(method, "method_not_found", 0)
		return nil, MethodNotFound(method)
	}

	args, fault := bindParams(m.Params, params)
	if fault != nil {
		r.observe(method, "invalid_params", 0)
		return nil, fault
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Handler panicked",
				zap.String("method", method),
				zap.Any("panic", rec),
			)
			r.observe(method, "panic", 0)
			result = nil
			fault = ApplicationError(fmt.Errorf("handler failure in %q", method))
		}
	}()

	start := time.Now()
	result, err := m.Handler(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		if f, ok := err.(*Fault); ok {
			r.observe(method, "fault", elapsed)
			return nil, f
		}
		r.log.Warn("Method failed",
			zap.String("method", method),
			zap.Error(err),
		)
		r.observe(method, "error", elapsed)
		return nil, ApplicationError(err)
	}
	r.observe(method, "ok", elapsed)
	return result, nil
}

func (r *Registry) observe(method, status string, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.RequestsTotal.WithLabelValues(method, status).Inc()
	if elapsed > 0 {
		r.metrics.DispatchDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}
