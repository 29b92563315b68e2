package field

// Squared euclidean distance transform of Felzenszwalb and
// Huttenlocher, run separably over the three axes of a cubic grid.
// Input cells hold 0 at seed voxels and edtInf elsewhere; output cells
// hold the squared distance in voxel units to the nearest seed.

// edtInf must survive adding squared voxel indices without overflowing
// float32.
const edtInf = 1e20

func edt3d(g []float32, n int) {
	f := make([]float32, n)
	d := make([]float32, n)
	v := make([]int, n)
	z := make([]float32, n+1)
	// along x
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			row := (k*n + j) * n
			copy(f, g[row:row+n])
			edt1d(f, d, v, z)
			copy(g[row:row+n], d)
		}
	}
	// along y
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				f[j] = g[(k*n+j)*n+i]
			}
			edt1d(f, d, v, z)
			for j := 0; j < n; j++ {
				g[(k*n+j)*n+i] = d[j]
			}
		}
	}
	// along z
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			for k := 0; k < n; k++ {
				f[k] = g[(k*n+j)*n+i]
			}
			edt1d(f, d, v, z)
			for k := 0; k < n; k++ {
				g[(k*n+j)*n+i] = d[k]
			}
		}
	}
}

// edt1d computes d[i] = min_j (f[j] + (i-j)^2) using the lower
// envelope of parabolas. v and z are scratch of length n and n+1.
func edt1d(f, d []float32, v []int, z []float32) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = -edtInf
	z[1] = edtInf
	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for k > 0 && s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = edtInf
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float32(q) {
			k++
		}
		dq := float32(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

// intersect returns the crossing of the parabolas rooted at q and p.
func intersect(f []float32, q, p int) float32 {
	return ((f[q] + float32(q*q)) - (f[p] + float32(p*p))) / float32(2*(q-p))
}
