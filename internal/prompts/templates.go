package prompts

// Template names of the built-in analysis stages.
const (
	FactExtraction     = "fact_extraction"
	EngineerSummary    = "engineer_summary"
	ImpactAnalysis     = "impact_analysis"
	ApplicationMapping = "application_mapping"
	BlogSynthesis      = "blog_synthesis"
	LinkedInFormatting = "linkedin_formatting"
	CredibilityCheck   = "credibility_check"
	Methodology        = "methodology"
	Results            = "results"
)

// DefaultSystemPrompt keeps every stage factual and restrained.
const DefaultSystemPrompt = `You are an experienced AI researcher and engineer.
Your role is to analyze AI, ML, LLM, and Generative AI content with accuracy and restraint.

Rules:
- Be factual and precise.
- Do not exaggerate impact.
- Do not use marketing language.
- Avoid speculative claims unless explicitly stated in the source.
- Prefer technical clarity over simplification.
- If information is uncertain or missing, say so explicitly.
- Write for engineers, not beginners.`

var defaultTemplates = map[string]string{
	FactExtraction: `Analyze the following source.

Tasks:
1. Identify the core contribution or announcement.
2. List concrete technical details (methods, models, datasets, scale, metrics).
3. State what is explicitly claimed by the authors or organization.
4. State what is NOT claimed or remains unclear.

Output format:
- Core contribution:
- Technical details:
- Explicit claims:
- Open questions / limitations:

Source:
{content}`,

	EngineerSummary: `Summarize the content for a practicing AI/ML engineer.

Constraints:
- Maximum 150 words.
- No hype or promotional tone.
- Explain what is new compared to prior approaches.
- Use correct technical terminology.
- Do not include opinions.

Focus on:
- What problem is addressed?
- How it is addressed?
- What evidence is provided?

Known facts:
{fact_extraction}

Content:
{content}`,

	ImpactAnalysis: `Explain why this work matters in practice.

Rules:
- Separate immediate impact from long-term implications.
- Clearly distinguish evidence-based impact vs potential future use.
- Mention at least one realistic constraint or trade-off.

Output format:
- Immediate implications:
- Long-term implications:
- Practical constraints:

Summary:
{engineer_summary}

Content:
{content}`,

	ApplicationMapping: `Map this work to real-world usage.

Instructions:
- Provide 1-2 realistic application scenarios.
- Do not invent capabilities not supported by the source.
- Clearly state assumptions required for deployment.

Output format:
- Application scenario:
- Why this work helps:
- Assumptions / prerequisites:

Impact:
{impact_analysis}

Content:
{content}`,

	BlogSynthesis: `Write a technical blog article based on the analysis.

Audience:
- Software engineers and AI practitioners.

Tone:
- Neutral, analytical, and precise.
- No emojis.
- No exaggerated claims.

Structure:
1. Context and background
2. What is new in this work
3. Technical explanation (high-level, accurate)
4. Practical relevance
5. Limitations and open questions
6. Conclusion

Length:
- 800-1000 words

Sources must be reflected accurately.

Title: {title}
URL: {url}

Analysis:
{analyzed_content}`,

	LinkedInFormatting: `Write a LinkedIn post summarizing this work.

Rules:
- Maximum 120 words.
- Start with a factual hook, not a sensational claim.
- Use bullet points for clarity.
- Avoid emojis and buzzwords.
- Do NOT include hashtags in the post.
- Do NOT include citation markers like [1], [2], [3].
- Remove any markdown formatting.
- End with one thoughtful takeaway.

Structure:
- Opening statement (what happened)
- 3 key points
- One practical takeaway

Title: {title}
URL: {url}

Article:
{blog_synthesis}

Analysis:
{analyzed_content}`,

	CredibilityCheck: `Review the generated content for credibility.

Check for:
- Unsupported claims
- Exaggerated language
- Missing limitations
- Ambiguous statements

If any issues exist:
- List them clearly
- Suggest precise corrections

Content to review:
{generated_output}`,

	Methodology: `Extract and explain the methodology from this research in detail.

Focus on:
1. Research approach - What methods were used and why
2. Data sources - What data was used, how it was collected/processed
3. Model architecture - Detailed breakdown of the system design
4. Training procedure - How the model/system was trained or developed
5. Evaluation metrics - How success was measured
6. Experimental setup - Hardware, hyperparameters, configuration

Be specific about:
- Technical choices and their rationale
- Any novel techniques or modifications
- Reproducibility details

Length: 400-600 words

Content:
{content}`,

	Results: `Analyze the results and findings from this research in detail.

Cover:
1. Main results - Key findings with specific numbers/metrics
2. Ablation studies - What components were tested and their impact
3. Comparisons - Performance vs baselines/prior work
4. Statistical significance - Are results meaningful
5. Edge cases - Where the approach works well/poorly
6. Unexpected findings - Surprises or counterintuitive results

Requirements:
- Be specific with numbers and comparisons
- Explain what the metrics mean in practice
- Discuss both successes and failures

Length: 400-600 words

Methodology:
{methodology}

Content:
{content}`,
}
