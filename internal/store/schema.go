package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"click-collect/internal/models"

	"go.uber.org/zap"
)

// rawDocument keeps entries undecoded so one malformed entry written by the
// admin tool does not hide the rest of the catalog.
type rawDocument struct {
	SchemaVersion int             `json:"schemaVersion"`
	Products      json.RawMessage `json:"products"`
	Orders        json.RawMessage `json:"orders"`
}

// SchemaError describes an entry rejected during validation
type SchemaError struct {
	Kind  string
	Index int
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s[%d]: %s", e.Kind, e.Index, e.Msg)
}

func decodeDocument(raw []byte, logger *zap.Logger) (models.Document, error) {
	var rd rawDocument
	if err := json.Unmarshal(raw, &rd); err != nil {
		return models.Document{}, err
	}

	if rd.SchemaVersion > models.SchemaVersion {
		logger.Warn("Shared document has a newer schema version, reading best-effort",
			zap.Int("version", rd.SchemaVersion),
			zap.Int("supported", models.SchemaVersion))
	}

	doc := emptyDocument()
	doc.SchemaVersion = rd.SchemaVersion

	for i, entry := range decodeArray(rd.Products, "products", logger) {
		var p models.Product
		if err := json.Unmarshal(entry, &p); err != nil {
			logger.Warn("Dropping undecodable product", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := validateProduct(i, p); err != nil {
			logger.Warn("Dropping invalid product", zap.Error(err))
			continue
		}
		doc.Products = append(doc.Products, p)
	}

	for i, entry := range decodeArray(rd.Orders, "orders", logger) {
		var o models.Order
		if err := json.Unmarshal(entry, &o); err != nil {
			logger.Warn("Dropping undecodable order", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := validateOrder(i, o); err != nil {
			logger.Warn("Dropping invalid order", zap.Error(err))
			continue
		}
		doc.Orders = append(doc.Orders, o)
	}

	return doc, nil
}

func decodeArray(raw json.RawMessage, field string, logger *zap.Logger) []json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn("Shared document field is not an array", zap.String("field", field), zap.Error(err))
		return nil
	}
	return entries
}

func validateProduct(i int, p models.Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return &SchemaError{Kind: "products", Index: i, Msg: "missing id"}
	case strings.TrimSpace(p.Name) == "":
		return &SchemaError{Kind: "products", Index: i, Msg: "missing name"}
	case p.Price.IsNegative():
		return &SchemaError{Kind: "products", Index: i, Msg: "negative price"}
	case p.Stock < 0:
		return &SchemaError{Kind: "products", Index: i, Msg: "negative stock"}
	}
	return nil
}

func validateOrder(i int, o models.Order) error {
	if strings.TrimSpace(o.Reference) == "" {
		return &SchemaError{Kind: "orders", Index: i, Msg: "missing reference"}
	}
	for _, item := range o.Items {
		if item.Quantity < 0 {
			return &SchemaError{Kind: "orders", Index: i, Msg: "negative item quantity"}
		}
	}
	return nil
}
