package writer

import (
	"fmt"
	"strings"

	"github.com/ibeckermayer/autobip/internal/types"
)

const draftPreamble = "You are a ghostwriter for a technical founder building in public.\n" +
	"Task: Turn these work logs into an engaging LinkedIn post.\n\n"

var strategyBlocks = map[types.ContentStrategy]string{
	types.StrategyStandardUpdate: `MODE: STANDARD UPDATE (Feature & Value Focus)
- **Core Philosophy**: Announce a new capability and its immediate value to the user.
- **Content Requirements**:
  - Clearly state what is new.
  - Explain the benefit (time saved, money made, frustration avoided).
  - Include a Call to Action (Try it out, Link in comments).
- **Structure**: Announcement -> The Problem Solved -> The Solution -> Call to Action.
`,
	types.StrategyBuildInPublic: `MODE: BUILD IN PUBLIC (Journey & Engagement Focus)
- **Objective**: Create a raw, authentic "Building in Public" narrative. Focus on the journey, lessons learned, and community engagement, distinct from a standard feature announcement.
- **Core Philosophy**: Share the "messy middle" of building. The audience values the struggle and the lesson more than the success.
- **Mandatory Content Elements**:
  1. **The Why**: Briefly explain the context. Why were you working on this?
  2. **The Struggle**: You MUST describe a specific challenge, mistake, false start, or moment of doubt encountered.
  3. **The Lesson**: What did you learn? What is the universal takeaway for other builders?
- **Engagement**: The post MUST end with a specific, open-ended question that invites other builders to share their own war stories.
- **Structure**: Hook (The Struggle/Insight) -> The Narrative (The "Bad" & The "Good") -> The Lesson -> Community Question.
`,
}

var toneBlocks = map[types.Tone]string{
	types.ToneProfessional: `STYLE: PROFESSIONAL / CORPORATE
- Tone: Confident, energetic, and polished.
- Suitable for a company page or a formal personal brand.
- Clear, grammatically perfect, and value-oriented.
`,
	types.ToneHumbleBuilder: `STYLE: HUMBLE BUILDER
- Tone: Highly conversational, vulnerable, and reflective. Use first-person ("I", "We").
- Avoid all corporate jargon and marketing speak.
- Emphasize learning and growth over expertise.
- Use lowercase for emphasis if it fits the "indie hacker" vibe.
`,
	types.ToneContrarian: `STYLE: CONTRARIAN / PROVOCATIVE
- Challenge common industry wisdom or "best practices".
- Be bold, opinionated, and slightly polarizing.
- Use short, punchy sentences.
- Start with a statement that makes people stop scrolling (e.g., "Stop doing X", "Why everyone is wrong about Y").
`,
	types.ToneDataFocused: `STYLE: DATA-FOCUSED / ANALYTICAL
- Focus on metrics, efficiency, and quantifiable results.
- Use numbers, percentages, and logic.
- Avoid fluff and emotional storytelling; stick to the facts and the impact.
- Tone should be objective, sharp, and expert.
`,
}

// StrategyBlock returns the structural template for a strategy. Anything
// other than BUILD_IN_PUBLIC gets the standard update block.
func StrategyBlock(strategy types.ContentStrategy) string {
	if block, ok := strategyBlocks[strategy]; ok {
		return block
	}
	return strategyBlocks[types.StrategyStandardUpdate]
}

// ToneBlock returns the style template for a tone, PROFESSIONAL for
// unrecognized values.
func ToneBlock(tone types.Tone) string {
	if block, ok := toneBlocks[tone]; ok {
		return block
	}
	return toneBlocks[types.ToneProfessional]
}

// BuildDraftPrompt constructs the prompt turning activity descriptions into
// a post. Callers must pass at least one activity.
func BuildDraftPrompt(activities []string, tone types.Tone, strategy types.ContentStrategy) string {
	var sb strings.Builder

	sb.WriteString(draftPreamble)

	sb.WriteString("Activities:\n")
	sb.WriteString(BulletList(activities))
	sb.WriteString("\n")

	sb.WriteString(StrategyBlock(strategy))
	sb.WriteString("\n")
	sb.WriteString(ToneBlock(tone))
	sb.WriteString("\n")

	sb.WriteString("Requirements:\n")
	if len(activities) > 1 {
		sb.WriteString("- This is a summary/update post combining multiple items.\n")
	} else {
		sb.WriteString("- Focus deeply on this single achievement.\n")
	}
	sb.WriteString("- Hook the reader in the first line.\n")
	sb.WriteString("- Keep paragraphs short (1-2 sentences).\n")
	sb.WriteString("- Do not use hashtags.\n")
	sb.WriteString("- Return JSON with 'title' (short internal summary, max 5 words) and 'content' (the post body).\n")

	return sb.String()
}

// BulletList renders one "- " line per activity.
func BulletList(activities []string) string {
	var sb strings.Builder
	for _, a := range activities {
		sb.WriteString("- ")
		sb.WriteString(a)
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildTrendPrompt asks for search-grounded trends and content gaps in an
// industry.
func BuildTrendPrompt(industry string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Analyze real-time search data to identify 2 significant industry trends, viral influencer discussions, or common \"content gaps\" (questions people are asking but not getting good answers to) in the %s space right now.\n\n", industry))
	sb.WriteString("Focus on topics that would trigger engagement for a \"Building in Public\" founder.\n\n")

	sb.WriteString("Return a valid JSON array of objects. Do not include markdown formatting. Each object must have:\n")
	sb.WriteString("- 'title': Short catchy title of the trend (e.g. \"The No-Code Debate\", \"AI Fatigue\").\n")
	sb.WriteString("- 'message': A 1-sentence explanation of why the user should post about this.\n")
	sb.WriteString("- 'actionQuery': A prompt string that can be used to generate a post about this.\n")
	sb.WriteString("- 'type': 'trend' (for viral topics) or 'gap' (for unanswered questions).\n")

	return sb.String()
}

// BuildSearchPrompt asks for a search-grounded post about a topic.
func BuildSearchPrompt(topic string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Write a LinkedIn post about this topic: %q.\n", topic))
	sb.WriteString("Return JSON with 'title', 'content', and 'url' if a source is found.\n")

	return sb.String()
}

// BuildEnhancePrompt asks for a rewrite of text following an instruction.
func BuildEnhancePrompt(text, instruction string) string {
	return fmt.Sprintf("Rewrite the following text. Instruction: %s. \n\nOriginal Text:\n%s", instruction, text)
}

// DefaultEnhanceInstruction is used when the caller gives none.
func DefaultEnhanceInstruction(tone types.Tone) string {
	return fmt.Sprintf("Refine this for clarity and impact, keeping the tone %s", tone)
}

// imageSubjectLimit caps how much of the post body goes into an image prompt.
const imageSubjectLimit = 100

// BuildImagePrompt describes a thumbnail for a post body.
func BuildImagePrompt(body string) string {
	subject := []rune(body)
	if len(subject) > imageSubjectLimit {
		subject = subject[:imageSubjectLimit]
	}
	return fmt.Sprintf("A professional, high-quality, minimal tech visualization suitable for a LinkedIn post about: %s. "+
		"Use abstract geometric shapes, a dark background, and neon accents.", string(subject))
}
