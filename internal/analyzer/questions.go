package analyzer

import "github.com/dgallion1/lexdoc/internal/domain"

var suggestedQuestions = map[domain.DocumentType][]string{
	domain.TypeRental: {
		"What is the monthly rent amount?",
		"What happens if I pay rent late?",
		"How much is the security deposit?",
		"Can I terminate the lease early?",
		"Who is responsible for repairs?",
		"What are the landlord's obligations?",
		"Are pets allowed in the property?",
		"What happens if I damage the property?",
	},
	domain.TypeLoan: {
		"What is the total amount I will repay?",
		"What is the effective interest rate?",
		"What happens if I miss a payment?",
		"What collateral is required?",
		"Can I repay the loan early?",
		"What are the processing fees?",
		"How is the interest calculated?",
		"What happens in case of default?",
	},
	domain.TypeEmployment: {
		"What is my total compensation package?",
		"How many hours am I expected to work?",
		"Can the company terminate me without notice?",
		"What are the non-compete restrictions?",
		"Am I allowed to work other jobs?",
		"What benefits am I entitled to?",
		"How much notice must I give to resign?",
		"Who owns the intellectual property I create?",
	},
	domain.TypeNDA: {
		"What information is considered confidential?",
		"How long does the confidentiality last?",
		"What are the penalties for disclosure?",
		"Can I discuss this agreement with others?",
		"What happens after the agreement ends?",
		"Are there any exceptions to confidentiality?",
	},
	domain.TypeService: {
		"What services are included in this agreement?",
		"What is the payment schedule?",
		"How can this agreement be terminated?",
		"What are the deliverables and deadlines?",
		"Who is responsible for what costs?",
		"What happens if the work is unsatisfactory?",
	},
}

var genericQuestions = []string{
	"What are the main obligations for each party?",
	"What are the key financial terms?",
	"How can this agreement be terminated?",
	"What are the potential risks for me?",
	"What should I be most careful about?",
	"Are there any unusual or concerning clauses?",
}

// SuggestedQuestions returns starter questions for a document type. The
// returned slice is a copy.
func SuggestedQuestions(t domain.DocumentType) []string {
	qs, ok := suggestedQuestions[t]
	if !ok {
		qs = genericQuestions
	}
	return append([]string(nil), qs...)
}
