package writer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/autobip/internal/types"
)

func countBlocks(prompt string) (strategies, tones int) {
	for _, block := range strategyBlocks {
		strategies += strings.Count(prompt, block)
	}
	for _, block := range toneBlocks {
		tones += strings.Count(prompt, block)
	}
	return strategies, tones
}

func TestBuildDraftPromptSingleActivity(t *testing.T) {
	prompt := BuildDraftPrompt([]string{"Added OAuth"}, types.ToneProfessional, types.StrategyStandardUpdate)

	assert.Contains(t, prompt, "- Added OAuth\n")
	assert.Contains(t, prompt, "MODE: STANDARD UPDATE")
	assert.Contains(t, prompt, "STYLE: PROFESSIONAL")
	assert.Contains(t, prompt, "Focus deeply on this single achievement.")
	assert.NotContains(t, prompt, "combining multiple items")

	strategies, tones := countBlocks(prompt)
	assert.Equal(t, 1, strategies)
	assert.Equal(t, 1, tones)
}

func TestBuildDraftPromptBatch(t *testing.T) {
	activities := []string{"Fixed memory leak in worker", "Added dark mode"}
	prompt := BuildDraftPrompt(activities, types.ToneHumbleBuilder, types.StrategyBuildInPublic)

	assert.Contains(t, prompt, "- Fixed memory leak in worker\n- Added dark mode\n")
	assert.Contains(t, prompt, "MODE: BUILD IN PUBLIC")
	assert.Contains(t, prompt, "STYLE: HUMBLE BUILDER")
	assert.Contains(t, prompt, "This is a summary/update post combining multiple items.")
	assert.NotContains(t, prompt, "MODE: STANDARD UPDATE")

	strategies, tones := countBlocks(prompt)
	assert.Equal(t, 1, strategies)
	assert.Equal(t, 1, tones)
}

func TestBuildDraftPromptUnknownEnumsFallBack(t *testing.T) {
	prompt := BuildDraftPrompt([]string{"x"}, types.Tone("Poetic"), types.ContentStrategy("Listicle"))

	assert.Contains(t, prompt, "STYLE: PROFESSIONAL")
	assert.Contains(t, prompt, "MODE: STANDARD UPDATE")
}

func TestBuildDraftPromptIsDeterministic(t *testing.T) {
	a := BuildDraftPrompt([]string{"one", "two"}, types.ToneContrarian, types.StrategyStandardUpdate)
	b := BuildDraftPrompt([]string{"one", "two"}, types.ToneContrarian, types.StrategyStandardUpdate)
	assert.Equal(t, a, b)
}

func TestBuildDraftPromptRequirements(t *testing.T) {
	prompt := BuildDraftPrompt([]string{"x"}, types.ToneDataFocused, types.StrategyStandardUpdate)

	assert.Contains(t, prompt, "Hook the reader in the first line.")
	assert.Contains(t, prompt, "Do not use hashtags.")
	assert.Contains(t, prompt, "'title' (short internal summary, max 5 words)")
}

func TestBuildTrendPrompt(t *testing.T) {
	prompt := BuildTrendPrompt("SaaS & Developer Tools")

	assert.Contains(t, prompt, "identify 2 significant industry trends")
	assert.Contains(t, prompt, "in the SaaS & Developer Tools space right now")
	for _, field := range []string{"'title'", "'message'", "'actionQuery'", "'type'"} {
		assert.Contains(t, prompt, field)
	}
}

func TestBuildSearchPrompt(t *testing.T) {
	prompt := BuildSearchPrompt("Vector databases")
	assert.Contains(t, prompt, `Write a LinkedIn post about this topic: "Vector databases".`)
	assert.Contains(t, prompt, "'url'")
}

func TestBuildEnhancePrompt(t *testing.T) {
	prompt := BuildEnhancePrompt("draft body", "Make it shorter")
	assert.Equal(t, "Rewrite the following text. Instruction: Make it shorter. \n\nOriginal Text:\ndraft body", prompt)

	assert.Equal(t, "Refine this for clarity and impact, keeping the tone Humble Builder",
		DefaultEnhanceInstruction(types.ToneHumbleBuilder))
}

func TestBuildImagePromptTruncatesRunes(t *testing.T) {
	body := strings.Repeat("é", 150)
	prompt := BuildImagePrompt(body)

	assert.Contains(t, prompt, "about: "+strings.Repeat("é", 100)+". ")
	assert.NotContains(t, prompt, strings.Repeat("é", 101))
	assert.Contains(t, prompt, "dark background, and neon accents.")

	short := BuildImagePrompt("Shipped v2")
	assert.Contains(t, short, "about: Shipped v2. ")
}
