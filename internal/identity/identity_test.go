package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
)

func TestResolveTestPath(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"relative service", "app/services/billing.rb", "spec/services/billing_spec.rb"},
		{"absolute controller", "/home/dev/shop/app/controllers/orders_controller.rb", "/home/dev/shop/spec/controllers/orders_controller_spec.rb"},
		{"nested namespace", "/srv/app/models/admin/user.rb", "/srv/spec/models/admin/user_spec.rb"},
		{"last app segment wins", "/work/app/engines/app/models/item.rb", "/work/app/engines/spec/models/item_spec.rb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTestPath(tt.source)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestResolveTestPath_NotUnderApp(t *testing.T) {
	_, err := ResolveTestPath("/home/dev/shop/lib/tasks/cleanup.rb")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotUnderApp, errors.GetCode(err))
	assert.Equal(t, errors.CategoryResolution, errors.GetCategory(err))
}

func TestResolveSourcePath_IsInverse(t *testing.T) {
	// Given: well-formed source paths
	sources := []string{
		"app/services/billing.rb",
		"/home/dev/shop/app/controllers/api/v1/orders_controller.rb",
		"/srv/app/models/line_item.rb",
	}

	for _, src := range sources {
		// When: mapping to the spec tree and back
		spec, err := ResolveTestPath(src)
		require.NoError(t, err)
		back, err := ResolveSourcePath(spec)
		require.NoError(t, err)

		// Then: the original path, role, and stem are recovered
		assert.Equal(t, filepath.FromSlash(src), back)
		assert.Equal(t, Classify(src), Classify(back))
	}
}

func TestResolveSourcePath_NotUnderSpec(t *testing.T) {
	_, err := ResolveSourcePath("test/models/user_test.rb")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotUnderSpec, errors.GetCode(err))
}

func TestResolver_CustomTrees(t *testing.T) {
	r := New("lib", "test")

	got, err := r.ResolveTestPath("/proj/lib/services/parser.rb")

	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/proj/test/services/parser_spec.rb"), got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"app/controllers/orders_controller.rb", KindController},
		{"/x/app/models/user.rb", KindModel},
		{"app/services/billing.rb", KindService},
		{"app/controllers/models/odd.rb", KindController},
		{"app/jobs/cleanup_job.rb", KindNone},
		{"app/helpers/services_helper.rb", KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"app/services/billing.rb", "RSpec.describe Billing, type: :service do"},
		{"/x/app/models/line_item.rb", "RSpec.describe LineItem, type: :model do"},
		{"app/controllers/api/v1/orders_controller.rb", "RSpec.describe Api::V1::OrdersController, type: :controller do"},
		{"app/services/payments/stripe_gateway.rb", "RSpec.describe Payments::StripeGateway, type: :service do"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DeriveTitle(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveTitle_Unclassified(t *testing.T) {
	_, err := DeriveTitle("app/jobs/cleanup_job.rb")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnclassifiedRole, errors.GetCode(err))
}

func TestClassName_RoleNamespaceAppearsOnce(t *testing.T) {
	assert.Equal(t, "UsersController", ClassName("controllers/users_controller"))
	assert.Equal(t, "Admin::AuditLog", ClassName("models/admin/audit_log"))
	assert.Equal(t, "Concerns::Trackable", ClassName("concerns/trackable"))
}

func TestIdentityAndClaimed(t *testing.T) {
	assert.Equal(t, "charge", Identity("  Charge "))

	tests := []struct {
		arg  string
		want string
	}{
		{"#charge", "charge"},
		{".build", "build"},
		{"POST create", "create"},
		{"get index", "index"},
		{"DELETE destroy", "destroy"},
		{"refund", "refund"},
		{"#", "#"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, Claimed(tt.arg))
		})
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app", "models", "user.rb")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("class User\nend\n"), 0o644))

	unit, err := ReadSource(path)

	require.NoError(t, err)
	assert.Equal(t, KindModel, unit.Kind)
	assert.Equal(t, "class User\nend\n", unit.Text)

	_, err = ReadSource(filepath.Join(dir, "missing.rb"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}
