package pipeline

import "unicode/utf8"

// Prompt templates for the note-synthesis workflow.
const (
	synthesisPrompt = `You are synthesizing reflections into a coherent note using the NoMa method.

The user has provided these reflections:

INTERESTING: %s

REMINDS ME: %s

SIMILAR BECAUSE: %s

DIFFERENT BECAUSE: %s

IMPORTANT BECAUSE: %s

Create a single, flowing note that naturally integrates all these reflections.

CRITICAL RULES:
- Write ONLY the note content itself
- NO meta-commentary (no "Here is your note", "Based on", etc.)
- NO section headers for the 5 prompts
- Flow naturally and weave ideas together seamlessly
- Use clear, direct language
- Maintain logical progression
- Make it complete and self-contained
- Don't extend beyond the provided reflections

Return as JSON: {"content": "..."}`

	titlePrompt = `Based on this note, generate a concise title.

Note:
%s

INSTRUCTIONS:
- Create a clear, descriptive title (3-8 words)
- Capture the main idea or theme
- Make it specific and informative

Return as JSON: {"title": "..."}`

	tagsPrompt = `Based on this note, identify 2-4 relevant topic tags.

Note:
%s

INSTRUCTIONS:
- Identify 2-4 key topics/themes from the note
- Tags should be single words or short phrases (e.g., "neuroplasticity", "learning", "brain-science")
- DO NOT include # symbols in tags (they will be added automatically)
- DO NOT include source (#s/) or context (#c/) tags (already included by default)

Return as JSON:
{"tags": ["tag1", "tag2", "tag3"]}

Output only the JSON, no additional text.`

	resourcesPrompt = `Based on this note about %s, find 2-5 high-prestige resources.

SELECTION CRITERIA:
- Only high-prestige sources: peer-reviewed journals, established publishers, recognized experts, reputable institutions
- Books: major academic presses, well-reviewed works by recognized authorities
- Articles: Nature, Science, academic journals, established publications (not blogs)
- Videos: university lectures, documentary series, established educational platforms

For each resource provide:
1. Title
2. URL (if available)
3. One sentence explaining why it's valuable

Return as JSON array: [{"title": "...", "url": "...", "reason": "..."}]`
)

// Prompt templates for the opposition workflow.
const (
	analysisPrompt = `You are an adversarial AI designed to challenge arguments and find weaknesses in reasoning.

Your role is NOT to be hostile, but to provide systematic, evidence-based opposition that strengthens thinking.

ORIGINAL CLAIM/NOTE:
%s

RELEVANT COUNTER-EVIDENCE FROM KNOWLEDGE BASE:
%s

INSTRUCTIONS:
- Identify the main claims or assumptions in the original note
- Use ONLY the provided counter-evidence to challenge these claims
- Point out logical inconsistencies, gaps in reasoning, or unsupported assumptions
- Be specific: quote from both the original note and counter-evidence
- Focus on strengthening the argument by exposing weaknesses
- NO subjective opinions - only evidence-based challenges

OUTPUT FORMAT:
1. **Main Claims Identified**: List the key claims/assumptions
2. **Challenges**: For each claim, provide specific counter-evidence
3. **Questions to Consider**: What questions does this counter-evidence raise?

Begin your analysis:`

	summaryPrompt = `Summarize the opposition in 2-3 sentences.

Original Note:
%s

Your Detailed Analysis:
%s

Provide a concise summary of the key weaknesses or counter-arguments you identified:`
)

// truncate bounds prompt excerpts to n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
