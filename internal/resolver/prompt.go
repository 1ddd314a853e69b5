package resolver

import (
	"fmt"
	"strings"
)

func (r *Resolver) prompt(description string) string {
	org := r.scope.Organization
	role := r.scope.Role

	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant that looks up the official email addresses of %ss at %s using web search.\n\n", role, org)
	b.WriteString("The user will describe who they want to email (name, course, department, etc.).\n")
	fmt.Fprintf(&b, "Descriptions may include typos or partial information. First, reason about the most likely intended %s %s and correct the spelling, then search.\n\n", org, role)
	fmt.Fprintf(&b, "Use web search to gather evidence from official %s pages or sources that clearly list the %s's email. ", org, role)
	fmt.Fprintf(&b, "Only return addresses ending with '%s'.\n", r.domain)
	b.WriteString("Double-check that the email matches the inferred person before returning it.\n")
	fmt.Fprintf(&b, "Only answer if you have high confidence AND the email ends with '%s'; otherwise respond with no matches.\n\n", r.domain)
	b.WriteString("Return ONLY a JSON object like:\n")
	b.WriteString("{\n")
	b.WriteString(`  "matches": [` + "\n")
	fmt.Fprintf(&b, `    {"name": "Full Name", "department": "Department or course", "email": "name@%s", "confidence": 0.0-1.0}`+"\n", r.domain)
	b.WriteString("  ]\n")
	b.WriteString("}\n\n")
	b.WriteString("List the most confident match first. If you cannot find a reliable match, return:\n")
	b.WriteString(`{"matches": []}` + "\n\n")
	fmt.Fprintf(&b, "Recipient description: %s", description)
	return b.String()
}
