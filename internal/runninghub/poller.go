package runninghub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

// ErrPollTransport marca fallas alcanzando el endpoint de status. Distinto
// de un FAILED reportado por el sistema externo, que es un outcome normal.
var ErrPollTransport = errors.New("runninghub: poll transport failure")

// OutcomeState es el estado terminal de un ciclo de polling.
type OutcomeState string

const (
	OutcomeSucceeded OutcomeState = "SUCCEEDED"
	OutcomeFailed    OutcomeState = "FAILED"
	OutcomeTimedOut  OutcomeState = "TIMED_OUT"
)

// Outcome es el resultado de PollUntilComplete. TimedOut es un outcome
// normal, no un error; los errores quedan reservados para fallas de
// transporte y cancelación.
type Outcome struct {
	State   OutcomeState
	Status  string // último status reportado por el API externo
	Elapsed time.Duration
}

// Poller consulta el estado de un job a intervalo fijo hasta que sea
// terminal o se agote el presupuesto de espera. Sin backoff: el intervalo
// es constante.
type Poller struct {
	client   Client
	interval time.Duration
	maxWait  time.Duration
}

// NewPoller crea un Poller. interval <= 0 usa 2s.
func NewPoller(client Client, interval, maxWait time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{client: client, interval: interval, maxWait: maxWait}
}

// PollUntilComplete consulta status hasta SUCCESS o FAILED del API externo,
// o hasta superar maxWait (outcome TimedOut, sin consultar de nuevo).
// Con maxWait = 0 y un primer status no terminal retorna TimedOut sin
// dormir nunca. Un error de transporte se retorna envuelto en
// ErrPollTransport; el caller decide si reintenta.
//
// Cancelar el ctx detiene el polling, no el job remoto: el tracking es
// puramente observacional.
func (p *Poller) PollUntilComplete(ctx context.Context, jobID string) (*Outcome, error) {
	log := logger.From(ctx).With(logger.Component("poller"), logger.JobID(jobID))
	start := time.Now()

	for {
		status, err := p.client.Status(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPollTransport, err)
		}

		elapsed := time.Since(start)
		switch status {
		case JobStatusSuccess:
			log.Info("job succeeded", logger.Duration(elapsed))
			return &Outcome{State: OutcomeSucceeded, Status: status, Elapsed: elapsed}, nil
		case JobStatusFailed:
			log.Info("job failed", logger.Duration(elapsed))
			return &Outcome{State: OutcomeFailed, Status: status, Elapsed: elapsed}, nil
		}

		if elapsed >= p.maxWait {
			log.Warn("poll budget exhausted", logger.Duration(elapsed), logger.String("last_status", status))
			return &Outcome{State: OutcomeTimedOut, Status: status, Elapsed: elapsed}, nil
		}

		log.Debug("job still running", logger.String("status", status), logger.Duration(elapsed))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrPollTransport, ctx.Err())
		case <-time.After(p.interval):
		}

		// Presupuesto vencido durante el sleep: no se consulta de nuevo.
		if elapsed = time.Since(start); elapsed >= p.maxWait {
			log.Warn("poll budget exhausted", logger.Duration(elapsed), logger.String("last_status", status))
			return &Outcome{State: OutcomeTimedOut, Status: status, Elapsed: elapsed}, nil
		}
	}
}
