package policy_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

type sheetRows struct {
	name string
	rows [][]any
}

func buildWorkbook(sheets ...sheetRows) []byte {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, s := range sheets {
		if i == 0 {
			Expect(f.SetSheetName("Sheet1", s.name)).To(Succeed())
		} else {
			_, err := f.NewSheet(s.name)
			Expect(err).NotTo(HaveOccurred())
		}
		for r, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			row := row
			Expect(f.SetSheetRow(s.name, cell, &row)).To(Succeed())
		}
	}
	buf, err := f.WriteToBuffer()
	Expect(err).NotTo(HaveOccurred())
	return buf.Bytes()
}

var header = []any{"CRN_KEY", "TYPE", "ID_01", "AMOUNT1"}

func apacWorkbook() []byte {
	return buildWorkbook(
		sheetRows{constants.SheetMeal, [][]any{
			header,
			{"eur", "Meal1", "fr", 60},
			{"EUR", "Meal1", "DE", "55,50"},
			{"JPY", "Meal1", "JP", "8,000.00"},
			{"USD", "Meal1", "", 40},
			{"GBP", "Meal1", "GB", 0},
		}},
		sheetRows{constants.SheetHotel, [][]any{
			header,
			{"EUR", "Hotel1", "FR", 180},
			{"EUR", "Hotel1", "DE", 150},
			{"SGD", "Hotel1", "SG", "250 SGD"},
		}},
		sheetRows{constants.SheetBreakfast, [][]any{
			header,
			{"EUR", "Breakfast1", "FR", 25},
			{"SGD", "", "SG", 20},
			{"EUR", "Meal1", "FR", 45},
			{"SGD", "Breakfast1", "SG", 35},
		}},
		sheetRows{"Notes", [][]any{
			{"comment"},
			{"limits reviewed yearly"},
		}},
	)
}

var _ = Describe("LoadWorkbook", func() {
	var (
		data []byte
		book *policy.Book
		err  error
	)

	JustBeforeEach(func() {
		book, err = policy.LoadWorkbook(bytes.NewReader(data), nil)
	})

	When("reading the three-sheet policy workbook", func() {
		BeforeEach(func() {
			data = apacWorkbook()
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should skip sheets without limit columns", func() {
			Expect(book.Sheets).To(HaveLen(3))
			_, ok := book.Sheet("Notes")
			Expect(ok).To(BeFalse())
		})

		It("should drop incomplete rows", func() {
			meal, ok := book.Sheet(constants.SheetMeal)
			Expect(ok).To(BeTrue())
			Expect(meal.Rules).To(HaveLen(3))
			Expect(meal.Skipped).To(Equal(2))
		})

		It("should upper-case codes and clean limits", func() {
			meal, _ := book.Sheet(constants.SheetMeal)
			Expect(meal.Rules[0]).To(Equal(policy.Rule{
				Sheet:    constants.SheetMeal,
				Currency: "EUR",
				Country:  "FR",
				Type:     constants.RuleMeal,
				Limit:    60,
			}))
			Expect(meal.Rules[1].Limit).To(Equal(55.5))
			Expect(meal.Rules[2].Limit).To(Equal(8000.0))

			hotel, _ := book.Sheet(constants.SheetHotel)
			Expect(hotel.Rules[2].Limit).To(Equal(250.0))
		})

		It("should split the breakfast sheet at the first Meal1 row", func() {
			bld, _ := book.Sheet(constants.SheetBreakfast)
			var types []constants.RuleType
			for _, r := range bld.Rules {
				types = append(types, r.Type)
			}
			Expect(types).To(Equal([]constants.RuleType{
				constants.RuleBreakfast, constants.RuleBreakfast, constants.RuleMeal, constants.RuleMeal,
			}))
			Expect(bld.Rules[3].Limit).To(Equal(35.0))
		})

		It("should validate cleanly", func() {
			rep := book.Validate()
			Expect(rep.Valid).To(BeTrue())
			Expect(rep.Warnings).To(BeEmpty())
			Expect(rep.Sheets[constants.SheetHotel].Currencies).To(Equal([]string{"EUR", "SGD"}))
			Expect(rep.Sheets[constants.SheetBreakfast].Types).To(Equal([]string{"Breakfast1", "Meal1"}))
		})
	})

	When("the hotel sheet is missing", func() {
		BeforeEach(func() {
			data = buildWorkbook(sheetRows{constants.SheetMeal, [][]any{
				header,
				{"EUR", "Meal1", "FR", 60},
			}})
		})

		It("should warn about the missing sheets", func() {
			rep := book.Validate()
			Expect(rep.Valid).To(BeTrue())
			Expect(rep.Warnings).To(ContainElements("missing sheet: Hotel", "missing sheet: Breakfast & Lunch & Dinner"))
		})
	})

	When("a sheet carries the wrong rule type", func() {
		BeforeEach(func() {
			data = buildWorkbook(sheetRows{constants.SheetHotel, [][]any{
				header,
				{"EUR", "Meal1", "FR", 60},
			}})
		})

		It("should warn about the expected type", func() {
			rep := book.Validate()
			Expect(rep.Warnings).To(ContainElement(ContainSubstring("sheet Hotel: expected types not found: Hotel1")))
		})
	})

	When("no row is usable", func() {
		BeforeEach(func() {
			data = buildWorkbook(sheetRows{constants.SheetMeal, [][]any{
				header,
				{"", "Meal1", "FR", 60},
			}})
		})

		It("should report the workbook invalid", func() {
			rep := book.Validate()
			Expect(rep.Valid).To(BeFalse())
			Expect(rep.Errors).NotTo(BeEmpty())
		})
	})

	When("the bytes are not a workbook", func() {
		BeforeEach(func() {
			data = []byte("CRN_KEY,TYPE,ID_01,AMOUNT1\nEUR,Meal1,FR,60\n")
		})

		It("should return a decode error", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, common.ErrDecode)).To(BeTrue())
		})
	})
})

var _ = Describe("WriteWorkbook", func() {
	It("should produce a workbook LoadWorkbook reads back", func() {
		rules := []policy.Rule{
			{Sheet: constants.SheetBreakfast, Currency: "THB", Country: "TH", Type: constants.RuleMeal, Limit: 900},
			{Sheet: constants.SheetBreakfast, Currency: "THB", Country: "TH", Type: constants.RuleBreakfast, Limit: 400},
			{Currency: "AUD", Country: "AU", Type: constants.RuleHotel, Limit: 320.5},
			{Currency: "AUD", Country: "AU", Type: constants.RuleMeal, Limit: 75},
		}
		data, err := policy.WriteWorkbook(rules)
		Expect(err).NotTo(HaveOccurred())

		book, err := policy.LoadWorkbook(bytes.NewReader(data), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(book.Sheets).To(HaveLen(3))
		Expect(book.Sheets[0].Name).To(Equal(constants.SheetMeal))

		hotel, ok := book.Sheet(constants.SheetHotel)
		Expect(ok).To(BeTrue())
		Expect(hotel.Rules).To(ConsistOf(policy.Rule{
			Sheet: constants.SheetHotel, Currency: "AUD", Country: "AU", Type: constants.RuleHotel, Limit: 320.5,
		}))

		bld, _ := book.Sheet(constants.SheetBreakfast)
		Expect(bld.Rules).To(HaveLen(2))
		Expect(bld.Rules[0].Type).To(Equal(constants.RuleBreakfast))
		Expect(bld.Rules[0].Limit).To(Equal(400.0))
		Expect(bld.Rules[1].Type).To(Equal(constants.RuleMeal))
	})

	It("should write an empty meal sheet when there are no rules", func() {
		data, err := policy.WriteWorkbook(nil)
		Expect(err).NotTo(HaveOccurred())
		book, err := policy.LoadWorkbook(bytes.NewReader(data), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(book.Rules()).To(BeEmpty())
	})
})

var _ = DescribeTable("CleanNumber",
	func(cell string, want float64) {
		Expect(policy.CleanNumber(cell)).To(Equal(want))
	},
	Entry("plain integer", "120", 120.0),
	Entry("decimal comma", "55,50", 55.5),
	Entry("thousands and decimals", "8,000.00", 8000.0),
	Entry("currency suffix", "250 SGD", 250.0),
	Entry("spaced thousands", "1 500,00", 1500.0),
	Entry("empty", "", 0.0),
	Entry("no digits", "n/a", 0.0),
)
