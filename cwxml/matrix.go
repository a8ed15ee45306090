package cwxml

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Matrices are stored in the document as space-separated rows, one row
// per line, in the same row order mathutils-style tooling writes them.

type Matrix4 [4]mgl32.Vec4

type Matrix34 [3]mgl32.Vec4

type Matrix43 [4]mgl32.Vec3

func Matrix4Identity() Matrix4 {
	return Matrix4FromMat4(mgl32.Ident4())
}

func Matrix4FromMat4(m mgl32.Mat4) (out Matrix4) {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = m.At(r, c)
		}
	}
	return out
}

// Mat4 converts back to an mgl32 matrix using the column-vector
// convention, rows of text becoming rows of the matrix.
func (m Matrix4) Mat4() mgl32.Mat4 {
	return mgl32.Mat4FromRows(m[0], m[1], m[2], m[3])
}

func Matrix34FromMat4(m mgl32.Mat4) (out Matrix34) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = m.At(r, c)
		}
	}
	return out
}

func (m Matrix34) Mat4() mgl32.Mat4 {
	return mgl32.Mat4FromRows(m[0], m[1], m[2], mgl32.Vec4{0, 0, 0, 1})
}

// Matrix43FromMat4 drops the 4th column of every row. The format keeps
// child drawable matrices in this shape.
func Matrix43FromMat4(m mgl32.Mat4) (out Matrix43) {
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = m.At(r, c)
		}
	}
	return out
}

func parseMatrixRows(n *Node, tag string, rows, cols int) ([][]float32, error) {
	c := n.Child(tag)
	if c == nil {
		return nil, nil
	}
	return parseMatrixText(c, rows, cols)
}

func parseMatrixText(c *Node, rows, cols int) ([][]float32, error) {
	tag := c.Tag
	lines := strings.Split(strings.TrimSpace(c.Text), "\n")
	if len(lines) != rows {
		return nil, formatErrorf(tag, "", "expected %d matrix rows, got %d", rows, len(lines))
	}
	out := make([][]float32, rows)
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != cols {
			return nil, formatErrorf(tag, "", "row %d: expected %d values, got %d", i, cols, len(fields))
		}
		out[i] = make([]float32, cols)
		for j, f := range fields {
			v, err := parseFloat(f)
			if err != nil {
				return nil, formatErrorf(tag, "", "row %d: bad float %q", i, f)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func formatMatrixRows(rows [][]float32) string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for _, row := range rows {
		for j, v := range row {
			if j != 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(FormatFloat(v))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (n *Node) Matrix4Of(tag string) (Matrix4, error) {
	var m Matrix4
	rows, err := parseMatrixRows(n, tag, 4, 4)
	if err != nil || rows == nil {
		return m, err
	}
	for r := 0; r < 4; r++ {
		copy(m[r][:], rows[r])
	}
	return m, nil
}

func (n *Node) Matrix34Of(tag string) (Matrix34, error) {
	var m Matrix34
	rows, err := parseMatrixRows(n, tag, 3, 4)
	if err != nil || rows == nil {
		return m, err
	}
	for r := 0; r < 3; r++ {
		copy(m[r][:], rows[r])
	}
	return m, nil
}

func (n *Node) Matrix43Of(tag string) (Matrix43, error) {
	var m Matrix43
	rows, err := parseMatrixRows(n, tag, 4, 3)
	if err != nil || rows == nil {
		return m, err
	}
	for r := 0; r < 4; r++ {
		copy(m[r][:], rows[r])
	}
	return m, nil
}

// parseMatrix43Node parses a 4x3 grid directly from a list item node.
func parseMatrix43Node(c *Node) (Matrix43, error) {
	var m Matrix43
	rows, err := parseMatrixText(c, 4, 3)
	if err != nil {
		return m, err
	}
	for r := 0; r < 4; r++ {
		copy(m[r][:], rows[r])
	}
	return m, nil
}

func AddMatrix4(parent *Node, tag string, m Matrix4) {
	rows := make([][]float32, 4)
	for r := 0; r < 4; r++ {
		rows[r] = m[r][:]
	}
	parent.Add(NewNode(tag)).Text = formatMatrixRows(rows)
}

func AddMatrix34(parent *Node, tag string, m Matrix34) {
	rows := make([][]float32, 3)
	for r := 0; r < 3; r++ {
		rows[r] = m[r][:]
	}
	parent.Add(NewNode(tag)).Text = formatMatrixRows(rows)
}

func AddMatrix43(parent *Node, tag string, m Matrix43) {
	rows := make([][]float32, 4)
	for r := 0; r < 4; r++ {
		rows[r] = m[r][:]
	}
	parent.Add(NewNode(tag)).Text = formatMatrixRows(rows)
}
