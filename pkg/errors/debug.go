package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logging. The DB fields
// are filled from the first Postgres error found, pgx before lib/pq.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	DB         DBFields `json:"db,omitempty"`
}

type DBFields struct {
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":      d.TopMessage,
		"error_code": d.Code,
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	set := func(key, val string) {
		if val != "" {
			fields["db_"+key] = val
		}
	}
	set("code", d.DB.Code)
	set("constraint", d.DB.Constraint)
	set("table", d.DB.Table)
	set("column", d.DB.Column)
	set("detail", d.DB.Detail)
	set("message", d.DB.Message)
	return fields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.DB = dbFields(err)
	return d
}

func dbFields(err error) DBFields {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return DBFields{pgErr.Code, pgErr.ConstraintName, pgErr.TableName, pgErr.ColumnName, pgErr.Detail, pgErr.Message}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return DBFields{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message}
	}
	return DBFields{}
}
