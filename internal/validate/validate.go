// Package validate classifies a mapped row as a genuine transaction record
// or noise: subtotal and title rows, credit notes, malformed identifiers.
package validate

import (
	"strings"

	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/normalize"
)

// furnitureKeywords flag report furniture (titles, running totals, page
// headers) rather than transactions. Matched case- and accent-insensitively
// as substrings of the supplier name.
var furnitureKeywords = []string{
	"total",
	"subtotal",
	"suma",
	"libro de compra",
	"ordenado",
	"desde:",
	"hasta:",
	"moneda:",
	"periodo",
	"resumen",
}

// excludedDocTypes is the document-type exclusion vocabulary. Codes 61/60
// are electronic/manual credit notes, 56 debit note, 52 dispatch guide;
// none of them are purchase-register line items. Accented forms collapse to
// these via folding.
var excludedDocTypes = []string{
	"61",
	"56",
	"52",
	"60",
	"nc",
	"n/c",
	"notacredito",
	"notadebito",
	"credito",
	"debito",
}

// Reason returns a short rejection reason for rec, or "" when the record is
// a genuine transaction. Rules apply in order; the first match rejects.
// Pure and total: never panics on any record shape.
func Reason(rec model.Record) string {
	factura := strings.TrimSpace(rec.Factura)
	if factura == "" || factura == "0" || factura == "nan" || factura == "null" {
		return "factura_invalid"
	}

	rut := normalize.RUT(rec.RUT)
	if len(rut) < 7 {
		return "rut_short"
	}

	// Textual check before numeric parsing: a textual zero is rejected even
	// if a different numeric encoding would not round to zero.
	monto := strings.TrimSpace(rec.MontoRaw)
	if monto == "" || monto == "0" || monto == "nan" || monto == "null" {
		return "monto_empty"
	}

	nombre := strings.TrimSpace(rec.Nombre)
	if nombre == "" || strings.EqualFold(nombre, "nan") || strings.EqualFold(nombre, "null") {
		return "nombre_empty"
	}

	folded := normalize.Fold(nombre)
	for _, kw := range furnitureKeywords {
		if strings.Contains(folded, kw) {
			return "nombre_furniture"
		}
	}

	if len([]rune(nombre)) < 3 {
		return "nombre_short"
	}

	tipo := normalize.Fold(strings.TrimSuffix(strings.TrimSpace(rec.Tipo), ".0"))
	tipo = strings.Join(strings.Fields(tipo), "")
	if tipo != "" {
		for _, code := range excludedDocTypes {
			if strings.Contains(tipo, code) {
				return "tipo_excluded"
			}
		}
	}

	// Belt-and-suspenders catch for credit notes the type code missed.
	if strings.Contains(folded, "nota") && strings.Contains(folded, "credito") {
		return "nombre_credit_note"
	}

	// Credit notes conventionally carry negative amounts in this domain.
	if normalize.Amount(rec.MontoRaw) < 0 {
		return "monto_negative"
	}

	if !validRUTShape(rut) {
		return "rut_malformed"
	}

	return ""
}

// Valid reports whether rec is a genuine transaction record. A record
// failing any rule is discarded from the canonical set entirely, not marked
// missing.
func Valid(rec model.Record) bool {
	return Reason(rec) == ""
}

// validRUTShape checks structural shape only: a 7-9 digit body followed by
// a digit-or-K check character. No modulo-11 verification is performed, so
// real but miskeyed IDs are not falsely rejected.
func validRUTShape(rut string) bool {
	if len(rut) < 2 {
		return false
	}
	body := rut[:len(rut)-1]
	if len(body) < 7 || len(body) > 9 {
		return false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return false
		}
	}
	check := rut[len(rut)-1]
	return check == 'K' || (check >= '0' && check <= '9')
}
