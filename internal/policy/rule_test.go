package policy_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

var _ = Describe("Rule.Validate", func() {
	good := policy.Rule{Sheet: constants.SheetHotel, Currency: "EUR", Country: "FR", Type: constants.RuleHotel, Limit: 180}

	It("accepts a well formed rule", func() {
		Expect(good.Validate()).To(Succeed())
	})

	DescribeTable("rejects malformed fields",
		func(mutate func(*policy.Rule), field string) {
			r := good
			mutate(&r)
			err := r.Validate()
			Expect(err).To(MatchError(common.ErrValidation))
			Expect(err.Error()).To(ContainSubstring(field))
		},
		Entry("long currency", func(r *policy.Rule) { r.Currency = "EURO" }, "currency"),
		Entry("lowercase currency", func(r *policy.Rule) { r.Currency = "eur" }, "currency"),
		Entry("missing currency", func(r *policy.Rule) { r.Currency = "" }, "currency"),
		Entry("three letter country", func(r *policy.Rule) { r.Country = "FRA" }, "country"),
		Entry("missing type", func(r *policy.Rule) { r.Type = "" }, "type"),
		Entry("zero limit", func(r *policy.Rule) { r.Limit = 0 }, "amount_limit"),
		Entry("huge sheet name", func(r *policy.Rule) { r.Sheet = strings.Repeat("x", 65) }, "sheet_name"),
	)

	It("reports every failing field at once", func() {
		r := policy.Rule{Currency: "euro", Country: "france", Type: constants.RuleMeal, Limit: -1}
		msg := r.Validate().Error()
		Expect(msg).To(ContainSubstring("currency"))
		Expect(msg).To(ContainSubstring("country"))
		Expect(msg).To(ContainSubstring("amount_limit"))
	})
})
