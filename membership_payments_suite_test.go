package main_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMembershipPayments(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MembershipPayments Suite")
}
