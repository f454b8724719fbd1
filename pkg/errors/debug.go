package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorDump is the log-only view of an error chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	HTTPStatus        int    `json:"http_status,omitempty"`
	UpstreamOperation string `json:"upstream_operation,omitempty"`
	UpstreamRequestID string `json:"upstream_request_id,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// StatusCarrier is implemented by errors that remember the HTTP status of a failed call.
type StatusCarrier interface {
	StatusCode() int
}

// UpstreamCarrier is implemented by errors raised from an outbound call.
type UpstreamCarrier interface {
	UpstreamCall() (operation, requestID string)
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var carrier StatusCarrier
	if errors.As(err, &carrier) {
		d.HTTPStatus = carrier.StatusCode()
	}

	var upstream UpstreamCarrier
	if errors.As(err, &upstream) {
		d.UpstreamOperation, d.UpstreamRequestID = upstream.UpstreamCall()
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGMessage = pgxErr.Message
	}

	return d
}
