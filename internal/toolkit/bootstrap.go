package toolkit

import "github.com/pose/aws-cdk/internal/template"

// BootstrapTemplate returns the built-in template for the toolkit stack: a
// single private staging bucket, with its name and domain published as the
// outputs Load reads back.
func BootstrapTemplate() template.Document {
	return template.Document{
		"Description": "The CDK Toolkit Stack. It was created by `cdk bootstrap` and manages resources necessary for managing your Cloud Applications with AWS CDK.",
		"Resources": map[string]interface{}{
			"StagingBucket": map[string]interface{}{
				"Type": "AWS::S3::Bucket",
				"Properties": map[string]interface{}{
					"AccessControl": "Private",
				},
			},
		},
		"Outputs": map[string]interface{}{
			BucketNameOutput: map[string]interface{}{
				"Description": "The name of the S3 bucket owned by the CDK toolkit stack",
				"Value":       map[string]interface{}{"Ref": "StagingBucket"},
			},
			BucketDomainOutput: map[string]interface{}{
				"Description": "The domain name of the S3 bucket owned by the CDK toolkit stack",
				"Value":       map[string]interface{}{"Fn::GetAtt": []interface{}{"StagingBucket", "DomainName"}},
			},
		},
	}
}
