// Package prompts holds the prompt templates for every language-model call
// in the analysis pipeline. Centralizing them keeps wording changes out of
// the component logic.
package prompts

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// render formats a template with the given variables.
func render(template string, vars map[string]any) (string, error) {
	tmpl := prompts.NewPromptTemplate(template, keys(vars))
	out, err := tmpl.Format(vars)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return out, nil
}

func keys(m map[string]any) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

const classifierTemplate = `Classify this lease-related question into one of three categories.

**Categories:**

1. "lease_only" - Questions asking ONLY about the specific lease document.
   These questions are about what the lease says, not what the law requires.

   Examples:
   - "What is my monthly rent?"
   - "Can I have a pet in my apartment?"
   - "When is my rent due each month?"
   - "What utilities are included in my lease?"
   - "How much notice do I need to give to move out?"

2. "law_only" - Questions asking ONLY about state or federal law.
   These questions are about legal requirements, not the specific lease.

   Examples:
   - "What does California law say about security deposits?"
   - "Are late fees legal in California?"
   - "What is the maximum security deposit allowed by law?"
   - "What are tenant rights under the federal Fair Housing Act?"
   - "What notice is required by law before eviction?"

3. "both" - Questions requiring comparison of lease terms vs. legal requirements.
   These questions ask if something in the lease is legal or allowed.

   Examples:
   - "Is my $300 late fee legal?"
   - "Can my landlord charge me for carpet cleaning?"
   - "Is the 2-month security deposit in my lease allowed?"
   - "Can my landlord enter without 24 hours notice like my lease says?"
   - "Does my lease violate tenant protection laws?"

**User question:**
{{.query}}

**Instructions:**
- Look for keywords: "my lease says" suggests lease_only or both; "law",
  "legal", "allowed" suggests law_only or both; "is X legal" suggests both.
- If the question compares lease vs. law, choose "both".
- If unsure, default to "both" (safer to search everything).

Return JSON only, no other text:
{"category": "<lease_only|law_only|both>", "reasoning": "<brief 1-sentence explanation>"}`

// Classifier renders the query-scope classification prompt.
func Classifier(query string) (string, error) {
	return render(classifierTemplate, map[string]any{"query": query})
}

const leaseAnalyzerTemplate = `You are analyzing a residential lease agreement to answer the user's question.

**Your task:**
1. Extract relevant clauses from the lease
2. Quote exact language when possible
3. Note section/clause numbers if present
4. Be specific about terms, amounts, and conditions

**Context from lease:**
{{.context}}

**User question:**
{{.question}}

**Instructions:**
- Focus ONLY on what the lease actually says
- Quote specific clauses verbatim when relevant
- If the lease is silent on the topic, say so explicitly
- Don't make assumptions about unstated terms
- Note any ambiguous or unclear language

**Your analysis:**`

// LeaseAnalyzer renders the lease evidence analysis prompt.
func LeaseAnalyzer(context, question string) (string, error) {
	return render(leaseAnalyzerTemplate, map[string]any{
		"context":  context,
		"question": question,
	})
}

const lawAnalyzerTemplate = `You are a legal expert on {{.state}} tenant protection law.

**Your task:**
1. Identify relevant code sections or statutes
2. Explain the legal standard or requirement
3. Note any exceptions or special conditions
4. Distinguish between state and federal law if both apply

**Legal context:**
{{.context}}

**User question:**
{{.question}}

**Instructions:**
- Cite specific code sections from the provided context
- Explain what the law requires or prohibits
- Note if this is state vs. federal law
- If the provided statutes are silent on the topic, say so explicitly
- Never cite a section that does not appear in the context

**Your legal analysis:**`

// LawAnalyzer renders the statute evidence analysis prompt.
func LawAnalyzer(state, context, question string) (string, error) {
	return render(lawAnalyzerTemplate, map[string]any{
		"state":    state,
		"context":  context,
		"question": question,
	})
}

const graderTemplate = `You are grading the quality of retrieved documents for answering a user's question.

**User question:** {{.query}}

**Retrieved documents:**
{{.documents}}

**Your task:** Grade retrieval quality on a scale of 0-10.

**Grading criteria:**
- 10: Perfect - documents directly and completely answer the question with specific details
- 8-9: Good - documents contain most information needed, minor gaps acceptable
- 6-7: Adequate - documents have relevant info but missing some important details
- 4-5: Partial - documents somewhat related but missing key information
- 2-3: Poor - documents barely relevant to the question
- 0-1: Irrelevant - documents don't address the question at all

**CRITICAL GRADING GUIDELINES:**

1. Single-source questions: if the question asks ONLY about law, grade based
   ONLY on law documents and ignore whether lease documents are relevant.
   Same for lease-only questions.

2. Comparison questions: if asking to compare lease vs. law, BOTH sources
   must have good information for a high grade.

3. Specificity matters: generic information gets lower grades. Specific code
   sections, amounts, and requirements get higher grades.

4. Recognize when federal law is relevant (Fair Housing Act, SCRA) and grade
   accordingly.

Return JSON with exactly these keys and no other text:
{"grade": <number 0-10>, "reasoning": "<1-2 sentence explanation>", "needs_requery": <true if grade is below {{.threshold}}, false otherwise>}`

// Grader renders the retrieval-quality grading prompt.
func Grader(query, documents string, threshold int) (string, error) {
	return render(graderTemplate, map[string]any{
		"query":     query,
		"documents": documents,
		"threshold": threshold,
	})
}

const refinementTemplate = `You are improving a search query that didn't find good results.

Original query: {{.original_query}}
Current iteration: {{.iteration}}
Why previous search failed: {{.failure_reason}}

Completely rephrase the question:
- Ask it differently
- Use alternative terminology
- Focus on the outcome or impact

Examples:
Original: "What does state law say about maximum security deposits?"
Rephrased: "how much can landlord charge deposit"

Return ONLY the rephrased query as a single line, no explanation.

Rephrased query:`

// Refinement renders the LLM query-rephrase prompt used on late iterations.
func Refinement(originalQuery, failureReason string, iteration int) (string, error) {
	return render(refinementTemplate, map[string]any{
		"original_query": originalQuery,
		"failure_reason": failureReason,
		"iteration":      iteration,
	})
}

const synthesisLeaseOnlyTemplate = `You are answering a question about what a specific lease document says.

**User question:** {{.user_query}}

**What the lease says:**
{{.lease_finding}}

**Your task:** Create a clear, direct answer based ONLY on the lease document.

**Answer structure:**

1. DIRECT ANSWER (1-2 sentences): answer the question directly, be specific
   about terms, amounts, and dates.
2. LEASE DETAILS (2-3 sentences): quote relevant clauses, note section
   numbers if present, explain conditions or exceptions.
3. IMPORTANT NOTES (if applicable): highlight unusual or strict terms, note
   if the lease is silent on this topic, mention ambiguous language.

**Tone:**
- Clear and direct, plain English
- Don't speculate about what's not written
- If the lease doesn't address it, say so clearly

**Your answer:**`

// SynthesisLeaseOnly renders the lease-only synthesis prompt.
func SynthesisLeaseOnly(userQuery, leaseFinding string) (string, error) {
	return render(synthesisLeaseOnlyTemplate, map[string]any{
		"user_query":    userQuery,
		"lease_finding": leaseFinding,
	})
}

const synthesisLawOnlyTemplate = `You are explaining what state or federal law requires regarding tenant rights.

**User question:** {{.user_query}}

**What {{.state}} law requires:**
{{.law_finding}}

**Your task:** Create a clear explanation of the legal requirements.

**Answer structure:**

1. DIRECT ANSWER (1-2 sentences): state the legal requirement clearly.
2. LEGAL REQUIREMENTS (3-4 sentences): cite specific code sections, explain
   what the law requires or prohibits, note exceptions, distinguish state
   vs. federal law if both apply.
3. PRACTICAL IMPLICATIONS (2-3 sentences): what this means for tenants and
   what landlords cannot do.
4. ENFORCEMENT (1-2 sentences): how these rights are enforced.

**Tone:**
- Informative and educational, plain English
- Be specific about legal standards
- Always caveat: "This is information, not legal advice."

**Your answer:**`

// SynthesisLawOnly renders the law-only synthesis prompt.
func SynthesisLawOnly(userQuery, lawFinding, state string) (string, error) {
	return render(synthesisLawOnlyTemplate, map[string]any{
		"user_query":  userQuery,
		"law_finding": lawFinding,
		"state":       state,
	})
}

const synthesisComparisonTemplate = `You are analyzing whether a lease complies with state and federal tenant protection laws.

**User question:** {{.user_query}}

**What the lease says:**
{{.lease_finding}}

**What {{.state}} law requires:**
{{.law_finding}}

**Your task:** Compare the lease vs. the law and identify any conflicts or compliance issues.

**Answer structure:**

1. DIRECT ANSWER (1-2 sentences): bottom line, is the lease term legal?
2. LEASE TERMS (2-3 sentences): what the lease specifically says, with quotes.
3. LEGAL REQUIREMENTS (2-3 sentences): what the law requires, with code sections.
4. COMPLIANCE ANALYSIS (3-4 sentences): does the lease comply, any conflicts
   or violations, which takes precedence (law over lease for tenant
   protections), implications for the tenant.
5. RED FLAGS (if applicable): illegal or unenforceable lease terms and what
   they mean practically.
6. RECOMMENDATION (1-2 sentences): what the tenant should do, when to seek
   legal help.

**Tone:**
- Balanced and factual, plain English
- Be specific with numbers and citations
- Always caveat: "This is information, not legal advice. Consult a lawyer for legal advice."

**Your answer:**`

// SynthesisComparison renders the lease-vs-law comparison synthesis prompt.
func SynthesisComparison(userQuery, leaseFinding, lawFinding, state string) (string, error) {
	return render(synthesisComparisonTemplate, map[string]any{
		"user_query":    userQuery,
		"lease_finding": leaseFinding,
		"law_finding":   lawFinding,
		"state":         state,
	})
}
