package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"spotvibe-backend/internal/infra/redis"
	"spotvibe-backend/internal/usecase"
)

type Server struct {
	paymentUC   usecase.PaymentUseCase
	txUC        usecase.TransactionUseCase
	refundUC    usecase.RefundUseCase
	ticketUC    usecase.TicketUseCase
	statusCache *redis.StatusCache // nil disables the cache path
	jwtSecret   string
	log         *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	txUC usecase.TransactionUseCase,
	refundUC usecase.RefundUseCase,
	ticketUC usecase.TicketUseCase,
	statusCache *redis.StatusCache,
	jwtSecret string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "APIServer").Logger()
	return &Server{
		paymentUC:   paymentUC,
		txUC:        txUC,
		refundUC:    refundUC,
		ticketUC:    ticketUC,
		statusCache: statusCache,
		jwtSecret:   jwtSecret,
		log:         &srvLog,
	}
}

// Router builds the full route tree. Webhooks skip the admin guard: their
// authentication is the HMAC signature checked in the gateway decoder.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", s.handleHealth)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", s.handleCreatePayment)
			r.Post("/webhooks/{operator}", s.handleWebhook)
			r.Get("/{reference}", s.handleGetPayment)
			r.Get("/{reference}/status", s.handleGetPaymentStatus)
			r.Post("/{reference}/cancel", s.handleCancelPayment)
			r.Post("/{reference}/retry", s.handleRetryPayment)
		})

		// gate scanning burns tickets, so it sits behind the same JWT
		// guard as refund processing
		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(s.jwtSecret, s.log))
			r.Post("/tickets/validate", s.handleValidateTicket)
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Post("/", s.handleRequestRefund)
			r.Group(func(r chi.Router) {
				r.Use(AdminAuth(s.jwtSecret, s.log))
				r.Get("/{id}", s.handleGetRefund)
				r.Post("/{id}/open", s.handleOpenRefund)
				r.Post("/{id}/approve", s.handleApproveRefund)
				r.Post("/{id}/complete", s.handleCompleteRefund)
				r.Post("/{id}/reject", s.handleRejectRefund)
			})
		})
	})

	return r
}
