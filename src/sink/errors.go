package sink

import (
	"errors"
	"fmt"
)

// ErrTerminated se retorna en llamadas posteriores a un fallo fatal o a un Abort/Close.
// El error original se observa exactamente una vez: en la llamada que falló.
var ErrTerminated = errors.New("sink is terminated")

// ConfigError indica una configuración inválida en la construcción del sink.
type ConfigError struct {
	Threshold int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid commit threshold %d: must be a positive integer", e.Threshold)
}

// DataError marca un fallo a nivel de datos reportado por el almacén (violación de
// constraint, tipo incompatible). El registro se descarta y el stream continúa; la
// transacción abierta no se ve afectada. Cualquier otro error de Statement.Run se
// trata como fallo de infraestructura y se propaga.
type DataError struct {
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("record rejected by store: %v", e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IsDataError reporta si err es recuperable a nivel de registro.
func IsDataError(err error) bool {
	var dataErr *DataError
	return errors.As(err, &dataErr)
}
