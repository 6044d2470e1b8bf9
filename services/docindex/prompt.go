package docindex

const enrichTemperature = 0.3

const enrichSystemPrompt = `You are an expert at analyzing sections of machine learning course materials.

Write a short, self-contained summary of the section you are given: what it covers, where it sits
in the larger document and which concepts a student might search for to find it. Reply with the
summary only.`

const enrichUserPrompt = `SECTION
Heading: %s
Section hierarchy: %s
Content:
%s

FULL DOCUMENT
%s`
