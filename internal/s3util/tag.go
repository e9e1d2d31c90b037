package s3util

// projectTag is the URL-encoded object tagging string for cost allocation.
const projectTag = "Project=redo-ai"

// ProjectTagging returns a pointer to the URL-encoded S3 object tagging string
// for PutObjectInput.Tagging.
func ProjectTagging() *string {
	t := projectTag
	return &t
}
