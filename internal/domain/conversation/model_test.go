package conversation

import "testing"

func TestParseClassroomAssistant(t *testing.T) {
	for _, raw := range []string{"technical", "coding", "aptitude"} {
		if a, ok := ParseClassroomAssistant(raw); !ok || string(a) != raw {
			t.Errorf("ParseClassroomAssistant(%q) = %q, %v", raw, a, ok)
		}
	}
	for _, raw := range []string{"", "general", "Coding", "music"} {
		if _, ok := ParseClassroomAssistant(raw); ok {
			t.Errorf("ParseClassroomAssistant(%q) accepted", raw)
		}
	}
}

func TestReplyRole(t *testing.T) {
	cases := map[Assistant]Role{
		AssistantGeneral:   RoleMentor,
		AssistantTechnical: RoleTechnicalAssistant,
		AssistantCoding:    RoleCodingAssistant,
		AssistantAptitude:  RoleAptitudeAssistant,
	}
	for assistant, want := range cases {
		if got := assistant.ReplyRole(); got != want {
			t.Errorf("%s.ReplyRole() = %s, want %s", assistant, got, want)
		}
	}
}

func TestAcceptsReplyRole(t *testing.T) {
	accepted := []struct {
		assistant Assistant
		role      Role
	}{
		{AssistantGeneral, RoleMentor},
		{AssistantCoding, RoleCodingAssistant},
		{AssistantCoding, RoleTechnicalAssistant},
		{AssistantAptitude, RoleAptitudeAssistant},
	}
	for _, c := range accepted {
		if !c.assistant.AcceptsReplyRole(c.role) {
			t.Errorf("%s rejected role %s", c.assistant, c.role)
		}
	}
	rejected := []struct {
		assistant Assistant
		role      Role
	}{
		{AssistantGeneral, RoleCodingAssistant},
		{AssistantTechnical, RoleMentor},
		{AssistantTechnical, RoleUser},
		{AssistantAptitude, Role("assistant")},
	}
	for _, c := range rejected {
		if c.assistant.AcceptsReplyRole(c.role) {
			t.Errorf("%s accepted role %s", c.assistant, c.role)
		}
	}
}

func TestComposePrompt(t *testing.T) {
	if got := ComposePrompt("Review", "cv.pdf", "Go developer"); got != "Review\n\n[Attachment: cv.pdf]\nGo developer" {
		t.Errorf("unexpected prompt %q", got)
	}
	if got := ComposePrompt("Review", "cv.pdf", ""); got != "Review\n\n[Attachment: cv.pdf] (could not extract text)" {
		t.Errorf("unexpected fallback prompt %q", got)
	}
}
