package corpus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownJurisdiction is returned when no statute set exists for the
// requested jurisdiction.
var ErrUnknownJurisdiction = errors.New("corpus: unknown jurisdiction")

// Statute is one section of tenant protection law. The seed set below covers
// the topics the analyzer is asked about most: deposits, late fees, entry
// notice, habitability, and termination, plus the federal overlays that apply
// in every state.
type Statute struct {
	Section      string
	Title        string
	Text         string
	Category     string
	State        string
	Jurisdiction string
}

var californiaStatutes = []Statute{
	{
		Section:  "1941",
		Title:    "Landlord Duty to Repair",
		Category: "habitability",
		Text: "The landlord must put the premises in a habitable condition at the " +
			"beginning of the tenancy and repair subsequent dilapidations that render " +
			"the property untenantable. Habitable conditions include effective " +
			"waterproofing, working plumbing, heating, electrical lighting, and clean " +
			"and sanitary premises.",
	},
	{
		Section:  "1942",
		Title:    "Tenant Remedies for Uninhabitable Conditions",
		Category: "remedies",
		Text: "If the landlord fails to repair untenantable conditions within a " +
			"reasonable time after written notice, the tenant may abandon the premises " +
			"and be discharged from further rent, or repair the defects and deduct the " +
			"cost from rent up to one month's rent. Written notice and a reasonable " +
			"cure period, typically 30 days for non-emergency defects, are required first.",
	},
	{
		Section:  "1946",
		Title:    "Termination of Month-to-Month Tenancy",
		Category: "termination",
		Text: "A month-to-month residential tenancy may be terminated by written " +
			"notice at least 30 days before the next rent due date. A landlord must " +
			"give at least 60 days notice when the tenant has resided in the dwelling " +
			"for one year or more. The tenant need only give 30 days notice regardless " +
			"of length of tenancy.",
	},
	{
		Section:  "1950.5",
		Title:    "Security Deposits - Limits and Return",
		Category: "security_deposit",
		Text: "For unfurnished units the total security deposit, including any last " +
			"month's rent, cannot exceed two months' rent. For furnished units the " +
			"limit is three months' rent. The landlord must return the deposit within " +
			"21 days after the tenant vacates with an itemized statement of " +
			"deductions. Deductions are limited to unpaid rent, cleaning to restore " +
			"original condition, and repair of damage beyond normal wear and tear.",
	},
	{
		Section:  "1940.2",
		Title:    "Late Fees - Reasonableness Requirement",
		Category: "fees",
		Text: "Late fees must be reasonable and specifically authorized in the " +
			"written rental agreement. California courts have generally found late " +
			"fees exceeding 5-6% of monthly rent to be potentially unreasonable. The " +
			"fee must reasonably relate to the landlord's actual costs from the late " +
			"payment; an excessive late fee may be unenforceable as a penalty.",
	},
	{
		Section:  "1954",
		Title:    "Landlord Right of Entry - Notice Requirements",
		Category: "entry_notice",
		Text: "A landlord may enter a dwelling only in an emergency, to make " +
			"necessary or agreed repairs, to show the property, after abandonment, or " +
			"under court order. Except in emergencies, entry is limited to normal " +
			"business hours and requires reasonable written notice, with 24 hours " +
			"generally considered reasonable. The notice must state the date, " +
			"approximate time, and purpose of entry.",
	},
	{
		Section:  "1942.5",
		Title:    "Retaliation Prohibited",
		Category: "retaliation",
		Text: "A landlord may not retaliate against a tenant who complains about " +
			"habitability, organizes with other tenants, or exercises legal rights. " +
			"Retaliation includes rent increases, decreased services, and eviction " +
			"filings. Action within 180 days of the protected activity carries a " +
			"rebuttable presumption of retaliation.",
	},
	{
		Section:  "789.3",
		Title:    "Unlawful Landlord Actions - Utility Shutoffs",
		Category: "unlawful_actions",
		Text: "A landlord may not, with intent to terminate occupancy, lock the " +
			"tenant out, remove doors or windows, remove the tenant's property, or " +
			"interrupt utility service. Violations carry civil penalties of up to " +
			"$100 per day plus the tenant's actual damages and attorney's fees. These " +
			"are forms of unlawful self-help eviction.",
	},
	{
		Section:  "1951.2",
		Title:    "Damages for Early Lease Termination",
		Category: "termination",
		Text: "When a tenant breaks a lease early, the landlord may recover unpaid " +
			"rent due before the tenant left plus future rent exceeding the loss that " +
			"could reasonably have been avoided. The landlord has a duty to mitigate " +
			"by making reasonable efforts to re-rent, and the tenant is not liable " +
			"for any period the unit could reasonably have been re-rented.",
	},
}

var texasStatutes = []Statute{
	{
		Section:  "92.102",
		Title:    "Security Deposit Refund Requirements",
		Category: "security_deposit",
		Text: "The landlord must return the deposit within 30 days after the tenant " +
			"vacates, with a written itemized list of deductions. A landlord who " +
			"fails to do so forfeits the right to withhold any portion and is liable " +
			"for $100 plus three times the deposit and attorney fees. The tenant must " +
			"provide a forwarding address in writing.",
	},
	{
		Section:  "92.052",
		Title:    "Landlord Duty to Repair and Remedy",
		Category: "habitability",
		Text: "The landlord must make reasonable repairs within seven days of " +
			"written notice of a condition materially affecting health or safety. If " +
			"the landlord fails to repair, the tenant may terminate the lease, repair " +
			"and deduct, or seek civil remedies including damages and attorney fees.",
	},
	{
		Section:  "92.019",
		Title:    "Landlord's Entry - Notice Requirements",
		Category: "entry_notice",
		Text: "A landlord may enter without notice only in an emergency or after " +
			"abandonment. All other entries require at least 24 hours notice, at " +
			"reasonable times, for purposes such as repairs, showings, or inspection.",
	},
	{
		Section:  "92.008",
		Title:    "Landlord Retaliation Prohibited",
		Category: "retaliation",
		Text: "A landlord may not evict, refuse to renew, decrease services, or " +
			"raise rent in retaliation for a tenant's health-and-safety complaint or " +
			"exercise of legal rights. Action within six months of the complaint " +
			"carries a presumption of retaliation.",
	},
	{
		Section:  "92.01",
		Title:    "Notice to Vacate Requirements",
		Category: "termination",
		Text: "Either party must give at least one month's written notice to " +
			"terminate a month-to-month tenancy. Week-to-week tenancies require one " +
			"week's notice. Fixed-term leases end at the term unless renewed.",
	},
}

var federalStatutes = []Statute{
	{
		Section:  "Fair Housing Act Title VIII",
		Title:    "Prohibition of Housing Discrimination",
		Category: "discrimination",
		Text: "Federal law prohibits housing discrimination based on race, color, " +
			"national origin, religion, sex, familial status, or disability. " +
			"Landlords may not refuse to rent, set different terms, advertise " +
			"discriminatory preferences, falsely deny availability, or harass " +
			"tenants on these grounds. Complaints are filed with HUD.",
	},
	{
		Section:  "SCRA Section 305",
		Title:    "Servicemembers Civil Relief Act - Lease Termination",
		Category: "termination",
		Text: "Active duty servicemembers may terminate a residential lease upon " +
			"receiving permanent change of station orders or deployment orders of 90 " +
			"days or more, by providing written notice and a copy of the orders. " +
			"Termination is effective 30 days after the next rent due date, and the " +
			"landlord may not charge an early termination fee.",
	},
	{
		Section:  "ADA Title III",
		Title:    "Reasonable Accommodations for Disability",
		Category: "discrimination",
		Text: "Landlords must make reasonable accommodations for tenants with " +
			"disabilities and allow reasonable modifications at the tenant's " +
			"expense. No pet deposit or pet rent may be charged for service or " +
			"emotional support animals, though the tenant remains liable for actual " +
			"damage the animal causes.",
	},
	{
		Section:  "42 USC 4852d",
		Title:    "Lead-Based Paint Disclosure Requirement",
		Category: "habitability",
		Text: "For housing built before 1978, the landlord must disclose known " +
			"lead-based paint hazards, provide the EPA lead-hazard pamphlet, include " +
			"warning language in the lease, and give the tenant a 10-day inspection " +
			"window before the lease binds. Both parties must sign the disclosure.",
	},
}

var statutesByJurisdiction = map[string][]Statute{
	"california": californiaStatutes,
	"texas":      texasStatutes,
}

// Jurisdictions lists the supported state jurisdictions in sorted order.
func Jurisdictions() []string {
	out := make([]string, 0, len(statutesByJurisdiction))
	for j := range statutesByJurisdiction {
		out = append(out, j)
	}
	sort.Strings(out)
	return out
}

// StatutesFor returns the statute set for a state jurisdiction combined with
// the federal statutes that apply everywhere. Jurisdiction names are
// normalized ("New York" → "new_york").
func StatutesFor(jurisdiction string) ([]Statute, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(jurisdiction)), " ", "_")
	state, ok := statutesByJurisdiction[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnknownJurisdiction, jurisdiction, strings.Join(Jurisdictions(), ", "))
	}

	combined := make([]Statute, 0, len(state)+len(federalStatutes))
	for _, s := range state {
		s.State = key
		s.Jurisdiction = "state"
		combined = append(combined, s)
	}
	for _, s := range federalStatutes {
		s.State = "federal"
		s.Jurisdiction = "federal"
		combined = append(combined, s)
	}
	return combined, nil
}
