package validate

import "sort"

func checkAnchor(s *Subject) (Outcome, string) {
	if term, ok := s.Target.anchors.Match(s.Passage.Text, s.Passage.Compact); ok {
		return Pass, term
	}
	return Fail, ""
}

func checkHardNegative(s *Subject) (Outcome, string) {
	if term, ok := s.Catalog.HardNegatives().Match(s.Passage.Text, s.Passage.Compact); ok {
		return Fail, term
	}
	return Pass, ""
}

func checkSectionNegative(s *Subject) (Outcome, string) {
	if term, ok := s.Catalog.SectionNegatives().Match(s.Passage.Text, s.Passage.Compact); ok {
		return Fail, term
	}
	return Pass, ""
}

// An entry without trigger vocabulary never passes; such slots are reported as catalog input errors upstream.
func checkTriggerSignal(s *Subject) (Outcome, string) {
	if term, ok := s.Target.Entry.TriggerTerms().Match(s.Passage.Text, s.Passage.Compact); ok {
		return Pass, term
	}
	return Fail, ""
}

func checkNameLock(s *Subject) (Outcome, string) {
	if ok, how := s.Target.lock.Check(s.Passage.Compact); ok {
		return Pass, how
	}
	return Fail, ""
}

func checkRequiredTerm(s *Subject) (Outcome, string) {
	required := s.Target.Entry.RequiredTerms(s.Attribute)
	if required.Empty() {
		return Skip, ""
	}
	if term, ok := required.Match(s.Passage.Text, s.Passage.Compact); ok {
		return Pass, term
	}
	return Fail, ""
}

func checkSlotNegative(s *Subject) (Outcome, string) {
	negatives := s.Catalog.SlotNegatives(s.Attribute)
	if negatives.Empty() {
		return Skip, ""
	}
	if term, ok := negatives.Match(s.Passage.Text, s.Passage.Compact); ok {
		return Fail, term
	}
	return Pass, ""
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
