package reify

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// intBound is the inclusive [min, max] range for one (width, signedness)
// pair, parsed into apd.Decimal on each check so the comparison below is exact
// arbitrary-precision arithmetic rather than a fixed-width Go integer
// parse — a literal's decimal text can carry more digits than any native
// width holds, and the point of reification's range check is to catch
// exactly that case (spec.md §9's "Safe_cast_invalid_argument" open
// question).
type intBound struct {
	min, max apd.Decimal
}

func boundText(width adt.IntegerWidth, signed bool) (min, max string, ok bool) {
	switch {
	case width == adt.Width8 && signed:
		return "-128", "127", true
	case width == adt.Width8 && !signed:
		return "0", "255", true
	case width == adt.Width16 && signed:
		return "-32768", "32767", true
	case width == adt.Width16 && !signed:
		return "0", "65535", true
	case width == adt.Width32 && signed:
		return "-2147483648", "2147483647", true
	case width == adt.Width32 && !signed:
		return "0", "4294967295", true
	case width == adt.Width64 && signed:
		return "-9223372036854775808", "9223372036854775807", true
	case width == adt.Width64 && !signed:
		return "0", "18446744073709551615", true
	default:
		return "", "", false
	}
}

func (r *Reifier) bound(width adt.IntegerWidth, signed bool) (intBound, bool) {
	minText, maxText, ok := boundText(width, signed)
	if !ok {
		return intBound{}, false
	}
	var b intBound
	if _, _, err := b.min.SetString(minText); err != nil {
		return intBound{}, false
	}
	if _, _, err := b.max.SetString(maxText); err != nil {
		return intBound{}, false
	}
	return b, true
}

// checkIntegerLiteral range-checks lit's decimal text against ty's
// resolved integer width, once ty has flattened past any unification
// variable it was elaborated with (spec_full's supplemented overflow
// check). Non-integer resolved types (reached only via an already-reported
// unification failure producing a poison type) are skipped silently.
func (r *Reifier) checkIntegerLiteral(lit *adt.IntegerLiteral, ty adt.Type, span token.Span) {
	it, ok := ty.FlattenedValue().(*adt.IntegerType)
	if !ok {
		return
	}
	bound, ok := r.bound(it.Width, it.Signed)
	if !ok {
		return
	}

	var value apd.Decimal
	if _, _, err := value.SetString(lit.Text); err != nil {
		r.diagnostics.Error(
			diag.NewMessagef("malformed integer literal %q", lit.Text),
			diag.Section{Span: span, Note: diag.NewMessagef("literal here")},
		)
		return
	}

	if value.Cmp(&bound.min) < 0 || value.Cmp(&bound.max) > 0 {
		kind := "i"
		if !it.Signed {
			kind = "u"
		}
		r.diagnostics.Error(
			diag.NewMessagef("integer literal %q out of range for %s%d", lit.Text, kind, int(it.Width)),
			diag.Section{Span: span, Note: diag.NewMessagef("must fit in [%s, %s]", bound.min.String(), bound.max.String())},
		)
	}
}
