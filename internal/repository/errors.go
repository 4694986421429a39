package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ── 约束冲突哨兵 ──

var (
	ErrDuplicate      = errors.New("duplicate key")
	ErrForeignKey     = errors.New("foreign key violation")
	ErrCheckViolation = errors.New("check constraint violation")
)

// PostgreSQL SQLSTATE
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// ConstraintError 携带约束名的约束冲突，errors.Is 可匹配上面的哨兵
type ConstraintError struct {
	Kind       error
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Constraint
}

func (e *ConstraintError) Unwrap() error { return e.Kind }

// ConstraintName 返回错误链中的约束名；非约束错误返回空串
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// translate 将驱动层约束错误翻译为仓储哨兵，其余原样返回
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var kind error
	switch pgErr.Code {
	case pgUniqueViolation:
		kind = ErrDuplicate
	case pgForeignKeyViolation:
		kind = ErrForeignKey
	case pgCheckViolation:
		kind = ErrCheckViolation
	default:
		return err
	}
	return &ConstraintError{Kind: kind, Constraint: pgErr.ConstraintName, Detail: pgErr.Message}
}
