// Package testutil provides layer-document fixtures for tests.
package testutil

// GlobalDefaultsYAML is a representative organization defaults document.
// Scalar fields use the explicit {value, override_allowed} record shape;
// wiki and visibility are locked.
const GlobalDefaultsYAML = `
repository:
  issues:
    value: true
    override_allowed: true
  wiki:
    value: false
    override_allowed: false
  visibility:
    value: private
    override_allowed: false
  default_branch:
    value: main
    override_allowed: true
pull_requests:
  required_reviews:
    value: 2
    override_allowed: true
  dismiss_stale_reviews:
    value: true
    override_allowed: true
branch_protection:
  enforce_admins:
    value: true
    override_allowed: false
push_limits:
  max_file_size_mb:
    value: 100
    override_allowed: true
labels:
  - name: bug
    color: "#d73a4a"
    description: Something isn't working
webhooks:
  - url: https://ci.example.com/hooks
    event: push
apps:
  - id: 1001
    slug: compliance-bot
`

// TeamConfigYAML is a representative team document using bare values.
const TeamConfigYAML = `
repository:
  issues: true
  default_branch: develop
pull_requests:
  required_reviews: 3
labels:
  - name: team-owned
    color: "#0e8a16"
`

// TypeConfigYAML is a representative repository-type document.
const TypeConfigYAML = `
pull_requests:
  require_code_owner_review: true
labels:
  - name: triage
    color: "#fbca04"
environments:
  - name: production
    wait_timer: 30
`

// TemplateConfigYAML is a representative template document with a
// preferable repository type.
const TemplateConfigYAML = `
name: go-service
author: platform
tags: [go, service]
repository_type:
  type: service
  policy: preferable
repository:
  delete_branch_on_merge: true
labels:
  - name: bug
    color: "#d73a4a"
    description: Something isn't working
`

// StandardLabelsYAML is a representative standard-label document, keyed
// by label name.
const StandardLabelsYAML = `
bug:
  color: "#d73a4a"
  description: Something isn't working
enhancement:
  color: "#a2eeef"
`
