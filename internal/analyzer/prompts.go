package analyzer

import (
	"fmt"

	"github.com/dgallion1/lexdoc/internal/domain"
)

const riskPrompt = `You are reviewing a %s on behalf of the person who is about to sign it.
Find the clauses that could hurt that person.

Look for:
1. Clauses that are clearly unfavourable to the signer
2. Financial exposure: hidden fees, penalties, escalating costs
3. Commitments: long lock-in periods, hard or expensive exits
4. Rights: waived protections, one-sided remedies, limited recourse

For every clause you report give:
- "clause_text": the clause copied exactly from the document, at most 100 words
- "category": one of "financial", "commitment", "rights", "standard"
- "severity": one of "low", "medium", "high", "critical"
- "explanation": why the clause is a problem for the signer
- "suggestion": what to negotiate or watch out for

Respond with ONLY a JSON object of this shape and nothing before or after it:

{"risk_factors": [{"clause_text": "...", "category": "financial", "severity": "medium", "explanation": "...", "suggestion": "..."}], "overall_assessment": "one or two sentences on the overall risk"}

Document:
%s`

const simplifyPrompt = `Rewrite the following %s in plain English that someone without legal training can follow.

Guidelines:
- Replace legal jargon with everyday words
- Split long sentences into short ones
- Say what each obligation means in practice
- Address the reader as "you"
- Keep the meaning intact and lead with what matters most

Respond with ONLY a JSON object of this shape and nothing else:

{"simplified_text": "...", "key_points": ["...", "..."], "jargon_definitions": {"legal term": "plain definition"}}

Document:
%s`

const summaryPrompt = `Summarise this %s for the person signing it, in under 200 words.

Cover:
1. What kind of agreement it is
2. Who the parties are
3. What each party must do
4. Key terms such as dates, amounts and conditions
5. The main benefits and risks

Document:
%s`

const answerPrompt = `Answer a question about a %s using only the excerpts below.
Quote or point to the relevant part when you can. If the excerpts do not
contain the answer, say so plainly instead of guessing.

Excerpts:
%s

Question: %s`

func buildRiskPrompt(text string, t domain.DocumentType) string {
	return fmt.Sprintf(riskPrompt, t.Label(), text)
}

func buildSimplifyPrompt(text string, t domain.DocumentType) string {
	return fmt.Sprintf(simplifyPrompt, t.Label(), text)
}

func buildSummaryPrompt(text string, t domain.DocumentType) string {
	return fmt.Sprintf(summaryPrompt, t.Label(), text)
}

func buildAnswerPrompt(question, context string, t domain.DocumentType) string {
	return fmt.Sprintf(answerPrompt, t.Label(), context, question)
}
