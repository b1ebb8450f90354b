package policy_test

import (
	"bytes"
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

var _ = Describe("Index", func() {
	var (
		idx *policy.Index
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		book, err := policy.LoadWorkbook(bytes.NewReader(apacWorkbook()), nil)
		Expect(err).NotTo(HaveOccurred())
		idx = policy.NewIndex(book.Rules())
	})

	lookup := func(currency, country string, c constants.Category) []policy.Rule {
		rules, err := idx.Lookup(ctx, currency, country, c)
		Expect(err).NotTo(HaveOccurred())
		return rules
	}

	It("should index every valid rule", func() {
		Expect(idx.Len()).To(Equal(10))
	})

	It("should satisfy Source", func() {
		var src policy.Source = idx
		Expect(src).NotTo(BeNil())
	})

	When("an exact rule exists on the mapped sheet", func() {
		It("should put it first", func() {
			rules := lookup("eur", " fr", constants.Hotel)
			Expect(rules).NotTo(BeEmpty())
			Expect(rules[0].Sheet).To(Equal(constants.SheetHotel))
			Expect(rules[0].Limit).To(Equal(180.0))
		})

		It("should add at most five partial matches", func() {
			rules := lookup("EUR", "FR", constants.Hotel)
			Expect(rules).To(HaveLen(6))
			for _, r := range rules[1:] {
				Expect(r.Currency == "EUR" || r.Country == "FR").To(BeTrue())
			}
		})
	})

	When("looking up a meal", func() {
		It("should accept the Meal1 block of the breakfast sheet after the meal sheet", func() {
			rules := lookup("EUR", "FR", constants.Meal)
			Expect(rules[0].Sheet).To(Equal(constants.SheetMeal))
			Expect(rules[0].Limit).To(Equal(60.0))
			Expect(rules[1].Sheet).To(Equal(constants.SheetBreakfast))
			Expect(rules[1].Type).To(Equal(constants.RuleMeal))
			Expect(rules[1].Limit).To(Equal(45.0))
		})

		It("should never repeat a rule", func() {
			rules := lookup("EUR", "FR", constants.Meal)
			seen := map[string]bool{}
			for _, r := range rules {
				sig := fmt.Sprintf("%s|%v", r.Key(), r.Limit)
				Expect(seen).NotTo(HaveKey(sig))
				seen[sig] = true
			}
		})
	})

	It("should check transport against meal limits", func() {
		rules := lookup("JPY", "JP", constants.Transport)
		Expect(rules).To(HaveLen(1))
		Expect(rules[0].Type).To(Equal(constants.RuleMeal))
		Expect(rules[0].Limit).To(Equal(8000.0))
	})

	It("should fall back to partial matches on currency alone", func() {
		rules := lookup("SGD", "", constants.Breakfast)
		Expect(rules).To(HaveLen(3))
	})

	It("should return nothing for an uncovered currency and country", func() {
		Expect(lookup("CHF", "CH", constants.Meal)).To(BeEmpty())
	})

	It("should cap partial matches", func() {
		var many []policy.Rule
		for i := 0; i < 20; i++ {
			many = append(many, policy.Rule{
				Sheet: constants.SheetMeal, Currency: "USD", Country: fmt.Sprintf("C%d", i), Type: constants.RuleMeal, Limit: 50,
			})
		}
		big := policy.NewIndex(many)
		rules, err := big.Lookup(ctx, "USD", "XX", constants.Meal)
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(HaveLen(5))
	})

	It("should summarize coverage", func() {
		s := idx.Summary()
		Expect(s.Sheets).To(HaveKeyWithValue(constants.SheetMeal, 3))
		Expect(s.Sheets).To(HaveKeyWithValue(constants.SheetBreakfast, 4))
		Expect(s.Currencies).To(Equal([]string{"EUR", "JPY", "SGD"}))
		Expect(s.Countries).To(Equal([]string{"DE", "FR", "JP", "SG"}))
	})

	It("should render rules with their source sheet", func() {
		r := policy.Rule{Sheet: constants.SheetHotel, Currency: "EUR", Country: "FR", Type: constants.RuleHotel, Limit: 180}
		Expect(r.String()).To(Equal("Hotel1 FR (EUR): limit 180 [Source: Hotel]"))
	})
})
