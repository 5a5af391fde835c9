package enhancer

// System prompts describe the exact JSON shape expected back. Responses that
// deviate are repaired once, then discarded in favor of heuristics.

const categorizePrompt = `You are an SEO analyst. Group the provided content items that are duplicated
or near-duplicated across different URLs. Respond with JSON only, no prose,
in exactly this shape:
{"groups":[{"content":"<representative content>","urls":["<url>","<url>"],
"category":"template|boilerplate|intent","similarityScore":<0-100>,
"rootCause":"<why this duplication exists>",
"improvementStrategy":"<how to fix it>"}]}
Only include groups spanning at least two URLs. Return {"groups":[]} when
nothing qualifies.`

const templatePrompt = `You are an SEO analyst. Find templated content: items that follow the same
skeleton with only slot values changed (for example a city name). Respond
with JSON only, in exactly this shape:
{"patterns":[{"pattern":"<skeleton with {placeholders}>",
"urls":["<url>","<url>"],"recommendation":"<how to differentiate>"}]}
Only include patterns spanning at least two URLs. Return {"patterns":[]}
when nothing qualifies.`

const intentPrompt = `You are an SEO analyst. Identify groups of pages whose content targets the
same search intent and would compete with each other in rankings. Respond
with JSON only, in exactly this shape:
{"conflicts":[{"intent":"<the shared intent>","urls":["<url>","<url>"],
"description":"<why these pages conflict>"}]}
Only include conflicts spanning at least two URLs. Return {"conflicts":[]}
when nothing qualifies.`
