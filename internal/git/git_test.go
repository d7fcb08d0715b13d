package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/lib.rs b/src/lib.rs
index 3b18e51..a9c4f2d 100644
--- a/src/lib.rs
+++ b/src/lib.rs
@@ -3,0 +4,2 @@ fn a() {
+    b();
+    c();
@@ -10 +12 @@ fn d() {
-    old();
+    new();
@@ -20,2 +21,0 @@ fn e() {
-    gone();
-    gone_too();
diff --git a/src/old.rs b/src/old.rs
deleted file mode 100644
index 3b18e51..0000000
--- a/src/old.rs
+++ /dev/null
@@ -1 +0,0 @@
-fn old() {}
`

func TestParseDiff(t *testing.T) {
	changes, err := ParseDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, changes, 1)

	assert.Equal(t, "src/lib.rs", changes[0].Path)
	assert.Equal(t, []int{4, 5, 12, 21}, changes[0].ChangedLines)
}

func TestParseDiff_Empty(t *testing.T) {
	changes, err := ParseDiff(nil)
	require.NoError(t, err)
	assert.Empty(t, changes)
}
