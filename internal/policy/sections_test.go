package policy_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

const policyDoc = `Travel policy

Hotel accommodation is reimbursed up to the nightly limit for the destination.

Meals with clients at a restaurant require the names of every attendee.

Taxi rides are allowed when no public transport runs, flight upgrades are not.

Each expense needs an itemised receipt kept as proof for seven years.

Employees should plan their trips early and coordinate with their manager.`

var _ = Describe("Sections", func() {
	var secs *policy.Sections

	BeforeEach(func() {
		secs = policy.IndexSections(policyDoc)
	})

	It("skips short paragraphs and keeps document positions", func() {
		Expect(secs.Len()).To(Equal(5))
		all := secs.All()
		Expect(all[0].Index).To(Equal(1))
		Expect(all[0].Text).To(HavePrefix("Hotel accommodation"))
	})

	It("classifies each paragraph", func() {
		var types []policy.SectionType
		for _, s := range secs.All() {
			types = append(types, s.Type)
		}
		Expect(types).To(Equal([]policy.SectionType{
			policy.SectionHotel,
			policy.SectionMeal,
			policy.SectionTransport,
			policy.SectionDocumentation,
			policy.SectionGeneral,
		}))
	})

	It("records the T&E keywords found", func() {
		Expect(secs.All()[0].Keywords).To(ConsistOf("hotel", "accommodation", "limit"))
		Expect(secs.All()[4].Keywords).To(BeEmpty())
	})

	DescribeTable("Search",
		func(topic string, want []string) {
			var got []string
			for _, s := range secs.Search(topic, 0) {
				got = append(got, strings.Fields(s.Text)[0])
			}
			Expect(got).To(Equal(want))
		},
		Entry("hotel", "hotel", []string{"Hotel"}),
		Entry("restaurant in a sentence", "can I expense a restaurant dinner", []string{"Meals", "Each"}),
		Entry("transport type name", "transport", []string{"Taxi"}),
		Entry("nothing matches", "visa", nil),
		Entry("blank topic", "   ", nil),
	)

	It("caps results and ranks the best match first", func() {
		doc := strings.Repeat("General note about the expense policy and the approval chain.\n\n", 5) +
			"Hotel expense claims above the limit need approval before the stay."
		got := policy.IndexSections(doc).Search("hotel expense approval", 0)
		Expect(got).To(HaveLen(policy.MaxSectionResults))
		Expect(got[0].Type).To(Equal(policy.SectionHotel))
		Expect(policy.IndexSections(doc).Search("hotel expense approval", 1)).To(HaveLen(1))
	})

	It("handles a nil index", func() {
		var none *policy.Sections
		Expect(none.Search("hotel", 3)).To(BeEmpty())
	})
})
