package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// credentialHints maps AWS error codes and messages to advice.
var credentialHints = []struct {
	match string
	hint  string
}{
	{"NoCredentialProviders", "no AWS credentials found; set --aws-profile or AWS_PROFILE"},
	{"failed to retrieve credentials", "no AWS credentials found; set --aws-profile or AWS_PROFILE"},
	{"failed to get shared config profile", "the AWS profile does not exist in ~/.aws/config"},
	{"ExpiredToken", "AWS session expired; refresh your credentials (aws sso login)"},
	{"InvalidClientTokenId", "AWS access key is invalid or not active"},
	{"SignatureDoesNotMatch", "AWS secret key does not match the access key"},
	{"AccessDenied", "the AWS identity lacks permission; casper needs read access (List*/Describe*)"},
	{"UnauthorizedOperation", "the AWS identity lacks permission; casper needs read access (List*/Describe*)"},
	{"NoSuchBucket", "the state bucket does not exist; check --bucket-name or CASPER_BUCKET"},
}

// enhanceError appends a hint for common AWS credential and access errors.
func enhanceError(err error) error {
	if err == nil {
		return nil
	}

	text := err.Error()
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		text = apiErr.ErrorCode() + " " + text
	}

	for _, h := range credentialHints {
		if strings.Contains(text, h.match) {
			return fmt.Errorf("%w\n  hint: %s", err, h.hint)
		}
	}
	return err
}
