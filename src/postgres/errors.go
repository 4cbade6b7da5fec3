package postgres

import (
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/sink"
)

// Clases SQLSTATE que indican rechazo del dato y no de la conexión:
// 21 (cardinality violation), 22 (data exception), 23 (integrity constraint violation)
var dataErrorClasses = map[string]bool{
	"21": true,
	"22": true,
	"23": true,
}

// ClassifyStoreError separa fallos a nivel de dato (el registro se descarta y el
// stream continúa) de fallos de infraestructura (la conexión no sirve, se propaga).
// Un error que no es un PgError con SQLSTATE de datos se trata como infraestructura.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	ok, pgErr := IsPgError(err)

	if ok && len(pgErr.Code) >= 2 && dataErrorClasses[pgErr.Code[:2]] {
		return &sink.DataError{Err: err}
	}

	return err
}
