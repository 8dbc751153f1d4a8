package schema_test

import (
	"encoding/json"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/engine"
	"github.com/san-kum/chaoskit/internal/export"
	"github.com/san-kum/chaoskit/internal/schema"
	"github.com/san-kum/chaoskit/internal/systems"
)

const tolerance = 1e-9

func closeEnough(got, want dynamo.State) {
	ExpectWithOffset(1, got).To(HaveLen(len(want)))
	for i := range want {
		if want[i] == 0 {
			ExpectWithOffset(1, got[i]).To(BeNumerically("~", 0, tolerance))
			continue
		}
		rel := math.Abs(got[i]-want[i]) / math.Abs(want[i])
		ExpectWithOffset(1, rel).To(BeNumerically("<", tolerance),
			"component %d: got %v want %v", i, got[i], want[i])
	}
}

var _ = Describe("export/import round trip", func() {
	DescribeTable("reproduces the engine for every system kind",
		func(kind systems.Kind) {
			sys, err := systems.New(kind)
			Expect(err).NotTo(HaveOccurred())

			e := engine.New(sys, engine.Options{Dt: 0.002})
			_, err = e.Step(137)
			Expect(err).NotTo(HaveOccurred())

			data, err := schema.ExportJSON(e)
			Expect(err).NotTo(HaveOccurred())

			imported, err := schema.Import(data, engine.Options{})
			Expect(err).NotTo(HaveOccurred())

			closeEnough(imported.State(), e.State())
			Expect(imported.Time()).To(BeNumerically("~", e.Time(), tolerance))
			Expect(imported.Steps()).To(Equal(e.Steps()))
			Expect(imported.Dt()).To(Equal(e.Dt()))
			Expect(imported.System().Kind()).To(Equal(kind))
			Expect(imported.System().Params()).To(Equal(e.System().Params()))
		},
		Entry("nbody", systems.KindNBody),
		Entry("double pendulum", systems.KindDoublePendulum),
		Entry("lorenz", systems.KindLorenz),
		Entry("rossler", systems.KindRossler),
		Entry("waterwheel", systems.KindWaterwheel),
	)

	It("preserves the initial condition so reset survives the trip", func() {
		sys, _ := systems.New(systems.KindLorenz)
		e := engine.New(sys, engine.Options{Dt: 0.002})
		initial := e.InitialState()
		e.Step(100)

		data, err := schema.ExportJSON(e)
		Expect(err).NotTo(HaveOccurred())
		imported, err := schema.Import(data, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		imported.Reset()
		closeEnough(imported.State(), initial)
	})

	It("tags documents with the current schema version", func() {
		sys, _ := systems.New(systems.KindRossler)
		e := engine.New(sys, engine.Options{Dt: 0.002})

		doc := schema.Export(e)
		Expect(doc.SchemaVersion).To(Equal(schema.Version))
		Expect(doc.Simulation.Type).To(Equal("rossler"))
		Expect(doc.Metadata.Generator).To(Equal("chaoskit"))
	})

	It("preserves n-body initial bodies so reset survives the trip", func() {
		nb := systems.NewNBody(nil, systems.DefaultBodies())
		e := engine.New(nb, engine.Options{Dt: 0.005})
		initial := e.InitialState()
		e.Step(50)

		data, err := schema.ExportJSON(e)
		Expect(err).NotTo(HaveOccurred())
		imported, err := schema.Import(data, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		imported.Reset()
		closeEnough(imported.State(), initial)
	})

	It("carries body identity through the document", func() {
		nb := systems.NewNBody(nil, systems.DefaultBodies())
		e := engine.New(nb, engine.Options{Dt: 0.005})
		e.Step(20)

		data, _ := schema.ExportJSON(e)
		imported, err := schema.Import(data, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		got := imported.System().(*systems.NBody).Bodies(imported.State())
		Expect(got).To(HaveLen(3))
		Expect(got[0].Name).To(Equal("alpha"))
		Expect(got[0].Color).To(Equal("#ff6b6b"))
	})
})

var _ = Describe("history round trip", func() {
	It("rebuilds n-body states from position tracks", func() {
		nb := systems.NewNBody(nil, systems.DefaultBodies())
		e := engine.New(nb, engine.Options{Dt: 0.005})
		_, err := e.Step(100)
		Expect(err).NotTo(HaveOccurred())

		data, err := schema.ExportJSON(e)
		Expect(err).NotTo(HaveOccurred())
		imported, err := schema.Import(data, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		records := imported.History().Records()
		want := e.History().Records()
		Expect(records).To(HaveLen(len(want)))
		Expect(len(records)).To(BeNumerically(">=", 2))

		for i, r := range records {
			Expect(r.State).To(HaveLen(18))
			for b := 0; b < 3; b++ {
				for c := 0; c < 3; c++ {
					// Exported tracks carry positions only.
					Expect(r.State[b*6+c]).To(BeNumerically("~", want[i].State[b*6+c], tolerance))
					Expect(r.State[b*6+3+c]).To(BeZero())
				}
			}
		}

		svg, err := export.TrajectorySVG(records, 0, 1, 800, 600, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(svg).To(ContainSubstring("<path"))
	})

	It("keeps oscillator state tracks through the trip", func() {
		sys, _ := systems.New(systems.KindLorenz)
		e := engine.New(sys, engine.Options{Dt: 0.002})
		_, err := e.Step(100)
		Expect(err).NotTo(HaveOccurred())

		data, _ := schema.ExportJSON(e)
		imported, err := schema.Import(data, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		records := imported.History().Records()
		want := e.History().Records()
		Expect(records).To(HaveLen(len(want)))
		for i := range records {
			closeEnough(records[i].State, want[i].State)
			Expect(records[i].Time).To(BeNumerically("~", want[i].Time, tolerance))
			Expect(records[i].Energy).To(BeNumerically("~", want[i].Energy, tolerance))
		}
	})
})

var _ = Describe("legacy import", func() {
	legacy := []byte(`{
		"positions": [[1.0, 0.0, 0.0], [-1.0, 0.0, 0.0]],
		"velocities": [[0.0, 0.3, 0.0], [0.0, -0.3, 0.0]],
		"masses": [2.0, 1.0],
		"colors": ["#ff0000", "#00ff00"],
		"names": ["sun", "planet"],
		"times": [0.0, 0.5, 1.0],
		"energies": [-1.5, -1.5, -1.5],
		"g": 1.0,
		"dt": 0.001
	}`)

	It("reconstructs bodies from the flat arrays", func() {
		e, err := schema.Import(legacy, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		nb, ok := e.System().(*systems.NBody)
		Expect(ok).To(BeTrue())
		Expect(nb.NumBodies()).To(Equal(2))

		bodies := nb.Bodies(e.State())
		Expect(bodies[0].Name).To(Equal("sun"))
		Expect(bodies[0].Mass).To(Equal(2.0))
		Expect(bodies[1].Position.X).To(Equal(-1.0))

		Expect(e.Time()).To(Equal(1.0))
		Expect(e.History().Len()).To(Equal(3))
	})

	It("re-derives initial bodies from the final frame", func() {
		e, err := schema.Import(legacy, engine.Options{})
		Expect(err).NotTo(HaveOccurred())

		// The legacy format has no initial-condition record: reset
		// lands on the imported frame, by design.
		imported := e.State()
		e.Reset()
		Expect(e.State()).To(Equal(imported))
	})

	It("rejects disagreeing parallel arrays", func() {
		bad := []byte(`{
			"positions": [[1, 0, 0], [-1, 0, 0]],
			"velocities": [[0, 0.3, 0]],
			"masses": [2.0, 1.0]
		}`)
		_, err := schema.Import(bad, engine.Options{})
		Expect(err).To(MatchError(dynamo.ErrImportFormat))
	})
})

var _ = Describe("malformed payloads", func() {
	It("rejects unrecognized documents with a typed error", func() {
		for _, payload := range [][]byte{
			[]byte(`not json at all`),
			[]byte(`{}`),
			[]byte(`{"something": "else"}`),
			[]byte(`[]`),
		} {
			_, err := schema.Import(payload, engine.Options{})
			Expect(err).To(MatchError(dynamo.ErrImportFormat), "payload %s", payload)
		}
	})

	It("rejects documents from a newer schema version", func() {
		sys, _ := systems.New(systems.KindLorenz)
		e := engine.New(sys, engine.Options{Dt: 0.002})

		doc := schema.Export(e)
		doc.SchemaVersion = schema.Version + 1
		data, _ := json.Marshal(doc)

		_, err := schema.Import(data, engine.Options{})
		Expect(err).To(MatchError(dynamo.ErrImportFormat))
	})

	It("rejects unknown system types", func() {
		sys, _ := systems.New(systems.KindLorenz)
		e := engine.New(sys, engine.Options{Dt: 0.002})

		doc := schema.Export(e)
		doc.Simulation.Type = "galton-board"
		data, _ := json.Marshal(doc)

		_, err := schema.Import(data, engine.Options{})
		Expect(err).To(MatchError(dynamo.ErrImportFormat))
	})

	It("rejects n-body entities missing coordinates", func() {
		nb := systems.NewNBody(nil, systems.DefaultBodies())
		e := engine.New(nb, engine.Options{Dt: 0.005})

		doc := schema.Export(e)
		doc.State.Entities[2].Position = nil
		data, _ := json.Marshal(doc)

		_, err := schema.Import(data, engine.Options{})
		Expect(err).To(MatchError(dynamo.ErrImportFormat))
	})

	It("rejects oscillator state vectors of the wrong length", func() {
		sys, _ := systems.New(systems.KindLorenz)
		e := engine.New(sys, engine.Options{Dt: 0.002})

		doc := schema.Export(e)
		doc.State.Entities[0].Vector = []float64{1, 2}
		data, _ := json.Marshal(doc)

		_, err := schema.Import(data, engine.Options{})
		Expect(err).To(MatchError(dynamo.ErrImportFormat))
	})
})
