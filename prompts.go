package museai

import (
	"fmt"
	"strings"
)

// DescribeFallback is narrated when the artwork cannot be described.
const DescribeFallback = "I'm sorry, I couldn't find the words to describe this masterpiece right now, but I hope you enjoy looking at it."

// RefineFallback returns the deterministic substitute for a failed refinement.
func RefineFallback(userIdea string, theme Theme) string {
	idea := strings.TrimSpace(userIdea)
	name := strings.TrimSpace(theme.Name)
	switch {
	case idea != "" && name != "":
		return fmt.Sprintf("an artistic rendition of %s in the style of %s", idea, name)
	case name != "":
		return "an artistic rendition in the style of " + name
	case idea != "":
		return "an artistic rendition of " + idea
	}
	return "an artistic rendition"
}

func refineInstruction(theme Theme, museumName string) string {
	return fmt.Sprintf(
		"You are an expert art director at %s. Rewrite the user's idea as a vivid image-generation prompt "+
			"in the style of %q (%s). Ground it in the techniques, palette and subjects of that collection. "+
			"Answer with a single descriptive paragraph and nothing else.",
		museumName, theme.Name, theme.Vibe)
}

func describeInstruction(museumName, themeName string) string {
	return fmt.Sprintf(
		"You are a charismatic museum guide at %s presenting a new work in the %q gallery. "+
			"Describe this artwork to visitors in an engaging, warm tone using no more than 50 words.",
		museumName, themeName)
}

func hashtagInstruction(museumName, themeName string) string {
	return fmt.Sprintf(
		"Create 8 to 10 social media hashtags for this artwork. Include a tag for the museum %q, "+
			"a tag for the theme %q and the tag %s. Reply with the hashtags only, separated by spaces.",
		museumName, themeName, BrandHashtag)
}
