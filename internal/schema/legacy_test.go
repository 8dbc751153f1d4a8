package schema

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaoskit/internal/dynamo"
)

var _ = Describe("legacy document validation", func() {
	valid := func() *legacyDocument {
		return &legacyDocument{
			Positions:  [][]float64{{1, 0, 0}, {-1, 0, 0}},
			Velocities: [][]float64{{0, 0.3, 0}, {0, -0.3, 0}},
			Masses:     []float64{2, 1},
			Times:      []float64{0, 0.5},
			Energies:   []float64{-1.5, -1.5},
		}
	}

	It("accepts a well-formed document", func() {
		Expect(valid().validate()).To(Succeed())
	})

	It("rejects non-finite time samples", func() {
		doc := valid()
		doc.Times[1] = math.NaN()
		Expect(doc.validate()).To(MatchError(dynamo.ErrImportFormat))
	})

	It("rejects non-finite energy samples", func() {
		doc := valid()
		doc.Energies[0] = math.Inf(1)
		Expect(doc.validate()).To(MatchError(dynamo.ErrImportFormat))
	})

	It("rejects non-finite coordinates", func() {
		doc := valid()
		doc.Velocities[1][2] = math.NaN()
		Expect(doc.validate()).To(MatchError(dynamo.ErrImportFormat))
	})
})
