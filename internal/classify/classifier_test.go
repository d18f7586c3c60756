package classify

import (
	"math"
	"testing"

	"github.com/polimaq/rankcore/internal/domain"
)

func TestClassify_SupportBeforeCore(t *testing.T) {
	c := New()

	// "disco" must win even though the text also names the machine.
	got := c.Classify("Disco Para Enceradeira 350mm")
	if got.Category != domain.CategorySupport {
		t.Errorf("expected support, got %s", got.Category)
	}
	if got.Confidence != 0.90 {
		t.Errorf("expected confidence 0.90, got %v", got.Confidence)
	}
}

func TestClassify_Core(t *testing.T) {
	c := New()

	got := c.Classify("Aspirador Industrial 1400W")
	if got.Category != domain.CategoryCore {
		t.Errorf("expected core, got %s", got.Category)
	}
	if got.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", got.Confidence)
	}
}

func TestClassify_Peripheral(t *testing.T) {
	c := New()

	got := c.Classify("Detergente Neutro 5L")
	if got.Category != domain.CategoryPeripheral {
		t.Errorf("expected peripheral, got %s", got.Category)
	}
	if got.Confidence != 0.90 {
		t.Errorf("expected confidence 0.90, got %v", got.Confidence)
	}
}

func TestClassify_StandaloneMotor(t *testing.T) {
	c := New()

	tests := []string{
		"Motor WEG para reposição",
		"Motor 1.5 CV monofásico",
		"Motor trifásico industrial",
	}
	for _, text := range tests {
		got := c.Classify(text)
		if got.Category != domain.CategorySupport || got.Confidence != 0.85 {
			t.Errorf("Classify(%q) = %+v, want support/0.85", text, got)
		}
	}
}

func TestClassify_MotorRequiresPattern(t *testing.T) {
	c := New()

	// "motor" buried in unrelated text without a power/phase/brand
	// qualifier must not fire the heuristic.
	got := c.Classify("Peça genérica com suporte a motor")
	if got.Category != domain.CategoryUnknown {
		t.Errorf("expected unknown, got %s", got.Category)
	}
}

func TestClassify_Unknown(t *testing.T) {
	c := New()

	got := c.Classify("Produto sem categoria aparente")
	if got.Category != domain.CategoryUnknown {
		t.Errorf("expected unknown, got %s", got.Category)
	}
	if got.Confidence != 0.30 {
		t.Errorf("expected confidence 0.30, got %v", got.Confidence)
	}
}

func TestClassify_AccentInsensitive(t *testing.T) {
	c := New()

	if got := c.Classify("LAVADORA DE ALTA PRESSÃO"); got.Category != domain.CategoryCore {
		t.Errorf("expected core for accented uppercase text, got %s", got.Category)
	}
}

func TestCompatibility_HighConfidenceAgreement(t *testing.T) {
	q := domain.Classification{Category: domain.CategoryCore, Confidence: 0.95}
	d := domain.Classification{Category: domain.CategoryCore, Confidence: 0.95}

	got := Compatibility(q, d)
	want := 1.0 * (0.5 + 0.5*0.95*0.95)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Compatibility = %v, want %v", got, want)
	}
	if got > 1 {
		t.Errorf("compatibility above 1: %v", got)
	}
}

func TestCompatibility_LowConfidenceNeverOverrides(t *testing.T) {
	q := domain.Classification{Category: domain.CategoryCore, Confidence: 0}
	d := domain.Classification{Category: domain.CategoryPeripheral, Confidence: 0}

	// With zero confidence the modulation bottoms out at base/2.
	got := Compatibility(q, d)
	want := 0.2 * 0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Compatibility = %v, want %v", got, want)
	}
}

func TestCompatibility_Bounds(t *testing.T) {
	cats := []domain.Category{
		domain.CategoryCore, domain.CategorySupport,
		domain.CategoryPeripheral, domain.CategoryUnknown,
	}
	for _, qc := range cats {
		for _, dc := range cats {
			got := Compatibility(
				domain.Classification{Category: qc, Confidence: 1},
				domain.Classification{Category: dc, Confidence: 1},
			)
			if got < 0 || got > 1 {
				t.Errorf("Compatibility(%s,%s) = %v out of [0,1]", qc, dc, got)
			}
		}
	}
}
