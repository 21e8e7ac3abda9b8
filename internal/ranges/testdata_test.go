package ranges

const awsDocument = `{
  "syncToken": "1700000000",
  "createDate": "2024-01-01-00-00-00",
  "prefixes": [
    {"ip_prefix": "52.216.0.0/15", "region": "us-east-1", "service": "AMAZON", "network_border_group": "us-east-1"},
    {"ip_prefix": "52.216.0.0/15", "region": "us-east-1", "service": "S3", "network_border_group": "us-east-1"},
    {"ip_prefix": "3.5.140.0/22", "region": "ap-northeast-2", "service": "S3", "network_border_group": "ap-northeast-2"},
    {"ip_prefix": "13.34.37.64/27", "region": "ap-southeast-4", "service": "AMAZON", "network_border_group": "ap-southeast-4"},
    {"ip_prefix": "not-a-prefix", "region": "us-east-1", "service": "S3", "network_border_group": "us-east-1"}
  ],
  "ipv6_prefixes": [
    {"ipv6_prefix": "2600:1fa0:8000::/39", "region": "us-east-1", "service": "S3", "network_border_group": "us-east-1"}
  ]
}`

const gcpDocument = `{
  "syncToken": "1700000000",
  "creationTime": "2024-01-01T00:00:00",
  "prefixes": [
    {"ipv4Prefix": "34.1.208.0/20", "service": "Google Cloud", "scope": "africa-south1"},
    {"ipv6Prefix": "2600:1900:8000::/44", "service": "Google Cloud", "scope": "us-east1"},
    {"ipv4Prefix": "34.80.0.0/15", "service": "Google Cloud", "scope": "asia-east1"}
  ]
}`

const googDocument = `{
  "syncToken": "1700000000",
  "creationTime": "2024-01-01T00:00:00",
  "prefixes": [
    {"ipv4Prefix": "142.250.0.0/15"},
    {"ipv6Prefix": "2607:f8b0::/32"}
  ]
}`

const oracleDocument = `{
  "last_updated_timestamp": "2024-01-01T00:00:00.000000",
  "regions": [
    {"region": "us-phoenix-1", "cidrs": [{"cidr": "129.146.0.0/21", "tags": ["OCI"]}, {"cidr": "134.70.8.0/21", "tags": ["OSN", "OBJECT_STORAGE"]}]},
    {"region": "eu-frankfurt-1", "cidrs": [{"cidr": "130.61.0.0/16", "tags": ["OCI"]}]}
  ]
}`

const digitalOceanDocument = `5.101.96.0/21,NL,NL-NH,Amsterdam,1098
104.131.0.0/18,US,US-NY,New York,10011
2604:a880::/48,US,US-NY,New York,10011
`

const cloudflareDocument = "173.245.48.0/20\n103.21.244.0/22\n\n103.22.200.0/22\n"
