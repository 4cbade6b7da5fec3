package pipeline

import (
	"encoding/json"
	"fmt"
)

// DecodeRecord deserializa el payload JSON de un mensaje. El valor retornado se
// entrega al sink tal cual: si no es un objeto, es el sink quien lo reporta y
// descarta, igual que con cualquier otro registro malformado.
func DecodeRecord(payload []byte) (any, error) {
	var record any

	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}

	return record, nil
}
