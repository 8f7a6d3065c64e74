package readstore

import (
	"errors"

	"keyshop/internal/infra"

	"github.com/jackc/pgx/v5"
)

func convertPgError(msg string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return infra.WrapRepoErr(infra.KindNotFound, msg, err)
	}
	return infra.WrapRepoErr(infra.KindDBFailure, msg, err)
}
